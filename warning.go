package httpcache

// RFC 7234 §5.5 Warning codes. RFC 9111 has obsoleted the Warning header
// field, but it remains a useful diagnostic signal for clients that still
// read it.
const warningResponseIsStale = `110 - "Response is Stale"`

func addWarningHeader(resp *Response, warningCode string) {
	resp.Headers = resp.Headers.Add("Warning", warningCode)
}

func addStaleWarning(resp *Response) {
	addWarningHeader(resp, warningResponseIsStale)
}
