// Package ratelimit admits or rejects requests per client key using a fixed
// window quota: N requests per window W, where a window starts at a key's
// first admitted request and ends W later.
//
// State lives in a Store. MemoryStore is process local and is swept in the
// background; RedisStore shares windows between instances with a Lua
// script. Both answer the same way for the same sequence of calls.
//
// The limiter never fails a request because of its own trouble: a store
// error is reported through a hook and the request is admitted.
//
// Keys come from the first X-Forwarded-For value. Requests without that
// header share one "anonymous" window, and a client that forges the header
// gets a fresh quota; this is not a security boundary.
package ratelimit
