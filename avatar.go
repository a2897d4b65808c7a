package taskapp

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/goliatone/go-errors"
)

// MaxAvatarBytes caps avatar uploads, matching the original limit.
const MaxAvatarBytes = 1_000_000

// AvatarSize is the stored avatar edge length in pixels.
const AvatarSize = 250

// PNGAvatarProcessor normalizes jpg/jpeg/png uploads into a square
// 250x250 PNG using a nearest-neighbor resample.
type PNGAvatarProcessor struct{}

var _ AvatarProcessor = PNGAvatarProcessor{}

func (PNGAvatarProcessor) Process(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("avatar upload is empty", errors.CategoryBadInput)
	}

	if len(data) > MaxAvatarBytes {
		return nil, errors.New("avatar upload exceeds size limit", errors.CategoryBadInput)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "file must be jpg, jpeg or png format")
	}

	switch format {
	case "jpeg", "png":
	default:
		return nil, errors.New("file must be jpg, jpeg or png format", errors.CategoryBadInput)
	}

	dst := resizeNearest(src, AvatarSize, AvatarSize)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode avatar")
	}

	return buf.Bytes(), nil
}

func resizeNearest(src image.Image, width, height int) image.Image {
	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y*bounds.Dy()/height
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x*bounds.Dx()/width
			dst.Set(x, y, src.At(sx, sy))
		}
	}

	return dst
}
