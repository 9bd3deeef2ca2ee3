// Package cookiejar keeps one cookie jar per origin (scheme + host) on disk.
//
// Set-Cookie response lines are parsed leniently into Cookie records, merged
// into the origin's Jar by name and persisted as a JSON object in
// <dir>/<md5(scheme+host)>. Before a request, the jar is filtered by expiry
// and path and the surviving name=value pairs are joined into a Cookie header.
//
// Expired cookies are filtered, never purged. Files are written without
// locking; concurrent processes sharing a directory get last-writer-wins.
package cookiejar
