// Package github describes the GitHub user directory endpoints and exposes a
// small repository on top of the request pipeline. List and detail responses
// are cached under their own TTLs; callers page through the directory with
// NextSince.
package github
