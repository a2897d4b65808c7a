// Package taskapp provides the account and session-token core of the
// task-app service: credential verification, bcrypt password hashing,
// per-device JWT issuance, and token revocation backed by each user's
// active-token list.
//
// Session model:
//   - Every signup or login issues a signed bearer token and appends it
//     to the owning user's token list. A token authorizes a request only
//     while it is cryptographically valid AND still present in that list,
//     so a single device logs out by removing one entry and every device
//     logs out by clearing the list. There is no separate revocation
//     store and no cross-user token index.
//   - Token verification is a pure signature+expiry check; list
//     membership is resolved through the user store when a request is
//     authenticated.
//
// Collaborators (mail delivery, avatar transcoding, HTTP transport) are
// modeled as small interfaces so the core stays testable without them.
package taskapp
