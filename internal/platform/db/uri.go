package db

import (
	"fmt"
	"strings"
)

// TenantURI rewrites the database path of a MongoDB connection string so the
// connection defaults to database. Credentials embedded in the base URI keep
// authenticating against their original database: when no authSource is
// given, the original path (or "admin") is pinned explicitly.
func TenantURI(base, database string) (string, error) {
	scheme, rest, ok := strings.Cut(base, "://")
	if !ok || (scheme != "mongodb" && scheme != "mongodb+srv") {
		return "", fmt.Errorf("unsupported mongodb uri scheme in %q", redactURI(base))
	}

	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}
	if authority == "" || strings.HasSuffix(authority, "@") {
		return "", fmt.Errorf("mongodb uri has no hosts")
	}

	path, query := tail, ""
	if i := strings.Index(tail, "?"); i >= 0 {
		path, query = tail[:i], tail[i+1:]
	}
	originalDB := strings.TrimPrefix(path, "/")

	if strings.Contains(authority, "@") && !hasQueryKey(query, "authSource") {
		authSource := originalDB
		if authSource == "" {
			authSource = "admin"
		}
		if query != "" {
			query += "&"
		}
		query += "authSource=" + authSource
	}

	uri := scheme + "://" + authority + "/" + database
	if query != "" {
		uri += "?" + query
	}
	return uri, nil
}

// DatabaseFromURI returns the database path of a MongoDB URI, or "" when the
// URI names none.
func DatabaseFromURI(uri string) string {
	_, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return ""
	}
	i := strings.Index(rest, "/")
	if i < 0 {
		return ""
	}
	path := rest[i+1:]
	if j := strings.Index(path, "?"); j >= 0 {
		path = path[:j]
	}
	return path
}

func hasQueryKey(query, key string) bool {
	for _, pair := range strings.Split(query, "&") {
		k, _, _ := strings.Cut(pair, "=")
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}

// redactURI strips credentials before a URI is logged or returned in an error.
func redactURI(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return "<invalid>"
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if slash := strings.Index(rest, "/"); slash < 0 || at < slash {
			rest = "***@" + rest[at+1:]
		}
	}
	return scheme + "://" + rest
}
