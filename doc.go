// Package accounts implements self service account registration with email
// verification on top of a generic Bun backed entity store.
//
// Account lifecycle:
//   - Signup creates an unverified Account plus a VerificationToken in one
//     transaction and mails a link embedding the token id. Signing up again
//     with a known email reports AlreadyCreated or AwaitingVerification and
//     has no side effects.
//   - VerifyAccount consumes a token: the account is marked verified and all
//     of its tokens are removed. Unknown, consumed and expired tokens all
//     report not found.
//   - ResendVerification mails the newest live token again, issuing a fresh
//     one only when none is live.
//   - CheckCredentials matches email and password against verified accounts.
//     Every miss costs one hash verification.
//
// Mail is sent after the transaction commits. Delivery failures are logged
// and never roll back the account.
//
// Audit events:
//   - Every store mutation emits a store.AuditEvent attributed to the actor
//     set with WithActor, or store.SystemActor. NewLoggerAuditSink logs them
//     as activitymap records.
package accounts
