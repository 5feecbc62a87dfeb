package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by the outbound webhook and the balance feed poller.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
