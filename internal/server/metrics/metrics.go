// Package metrics registers the Prometheus business metrics updated from
// the service layer. HTTP request metrics live in the http middleware.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts successful uploads.
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driveguard_uploads_total",
		Help: "Number of files uploaded to the remote store",
	})

	// UploadedBytesTotal counts bytes shipped to the remote store.
	UploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driveguard_uploaded_bytes_total",
		Help: "Total bytes uploaded to the remote store",
	})

	// VerificationsTotal counts verification attempts by outcome
	// (success, tampered, error).
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driveguard_verifications_total",
		Help: "Number of verification attempts by outcome",
	}, []string{"outcome"})

	// DeletesTotal counts soft deletions.
	DeletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driveguard_deletes_total",
		Help: "Number of files soft-deleted",
	})
)
