/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

package server

import "context"

type requestHeadersKey struct{}

// withRequestHeaders attaches the lower-cased identity/auth headers of an
// inbound streamable-HTTP request to ctx.
func withRequestHeaders(ctx context.Context, headers map[string]string) context.Context {
	return context.WithValue(ctx, requestHeadersKey{}, headers)
}

// requestHeaders recovers the headers attached by withRequestHeaders, or an
// empty map on stdio transport (no HTTP request exists).
func requestHeaders(ctx context.Context) map[string]string {
	if headers, ok := ctx.Value(requestHeadersKey{}).(map[string]string); ok {
		return headers
	}
	return map[string]string{}
}
