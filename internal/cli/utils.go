package cli

// truncateDigest shortens a hex digest for display. Full digests stay in
// the metadata store; truncation here is cosmetic only.
func truncateDigest(d string) string {
	if len(d) <= 16 {
		return d
	}
	return d[:16] + "..."
}
