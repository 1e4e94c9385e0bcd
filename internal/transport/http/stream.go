package httptransport

import (
	"fmt"
	"net/http"
	"time"

	"presence/internal/device"
)

// keepaliveInterval paces SSE comment frames so idle proxies keep the
// connection open.
const keepaliveInterval = 25 * time.Second

// handleStream pushes a revision event to the dashboard whenever either
// projection changes. Clients refetch the JSON views on each event; the
// stream itself carries no data, so a slow client can never see a torn
// snapshot.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, codeInternal, "streaming unsupported")
		return
	}

	client := device.Describe(r.UserAgent())
	h.log.Info("dashboard stream connected", "client", client)
	h.metrics.StreamClients.Inc()
	defer func() {
		h.metrics.StreamClients.Dec()
		h.log.Info("dashboard stream disconnected", "client", client)
	}()

	ch, stop := h.mirror.Watch()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeRevision := func(rev uint64) {
		fmt.Fprintf(w, "event: revision\ndata: %d\n\n", rev)
		flusher.Flush()
	}
	writeRevision(h.mirror.Revision())

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case rev, open := <-ch:
			if !open {
				return
			}
			writeRevision(rev)
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
