package models

// VerificationResult describes a single file's verification outcome.
type VerificationResult struct {
	// Name is the verified file's logical name.
	Name string `json:"name"`
	// Intact is true when the re-computed digest matched the stored one.
	Intact bool `json:"intact"`
	// TrustScore is binary: 100 on match, 0 on mismatch.
	TrustScore int `json:"trust_score"`
	// OriginalDigest is the digest recorded at upload time.
	OriginalDigest string `json:"original_digest"`
	// CurrentDigest is the digest of the bytes fetched from the remote store.
	CurrentDigest string `json:"current_digest"`
	// SizeBytes is the size of the fetched content.
	SizeBytes int64 `json:"size_bytes"`
}

// BatchItem is one file's entry in a batch verification.
type BatchItem struct {
	Name   string              `json:"name"`
	Result *VerificationResult `json:"result,omitempty"`
	// Error holds the failure message when the file could not be checked
	// (transport failure, record vanished mid-batch). Empty otherwise.
	Error string `json:"error,omitempty"`
}

// BatchResult aggregates a VerifyAll run.
type BatchResult struct {
	VerifiedCount int `json:"verified_count"`
	TamperedCount int `json:"tampered_count"`
	FailedCount   int `json:"failed_count"`
	// SecurityPercentage is verified/(verified+tampered)*100, or 0 when
	// no file was successfully checked.
	SecurityPercentage float64     `json:"security_percentage"`
	Results            []BatchItem `json:"results"`
}
