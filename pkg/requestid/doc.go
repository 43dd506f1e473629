// Package requestid tags HTTP requests with a correlation ID.
//
// Middleware keeps a client supplied X-Request-ID when it is short and
// limited to letters, digits, '-' and '_'; otherwise it generates a UUID.
// The ID is echoed in the response and stored in the request context.
// Pass LogAttr to logger.WithContextExtractors to stamp it on every record,
// next to the gate's execution IDs.
package requestid
