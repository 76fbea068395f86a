// Package remote is the client for the session sync service.
//
// Endpoints:
//
//	POST   {base}/login          {password} -> {token}
//	GET    {base}/sessions       -> [session, ...]
//	POST   {base}/sessions       session -> {id}
//	PUT    {base}/sessions/{id}  session
//	DELETE {base}/sessions/{id}
//	DELETE {base}/sessions/      {confirm} (bulk delete)
//	POST   {base}/images/        multipart "img" -> {url}
//
// Every authenticated call carries "Authorization: bearer {token}". A short
// fixed timeout applies to each request and nothing is retried. Responses in
// the 2xx range and 409 Conflict count as success; anything else is a
// *StatusError.
//
// Example Usage:
//
//	c, err := remote.Login(ctx, remote.Options{URL: "https://sync.example"}, password)
//	raw, err := c.ListSessions(ctx)
//	url, err := c.UploadImage(ctx, blob)
package remote
