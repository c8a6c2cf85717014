package instance

import "os"

// GetID identifies this worker replica for log correlation. It prefers the
// WORKER_ID env var (set per replica by the deployment) and falls back to the
// hostname, which on Kubernetes is the pod name.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
