// Package server hosts the Fiber HTTP facade over the GitHub user directory
// and the shared upstream HTTP client. Handlers only translate between HTTP
// and the directory repository; caching and error classification happen in
// the request pipeline, and this package maps pipeline error kinds onto HTTP
// status codes. Keep exports narrow and accept explicit dependencies.
package server
