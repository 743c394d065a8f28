package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/okian/vigil/internal/domain/dedupe"
	"github.com/okian/vigil/internal/domain/model"
	"github.com/okian/vigil/pkg/metrics"
)

// Frame ingestion limits.
const (
	defaultMaxBatch  = 300
	maxBodyBytes     = 16 << 20
	meshPoints       = 468
	meshPointsIrises = 478
)

// FrameDependencies defines the interface for frame ingestion.
type FrameDependencies interface {
	dedupe.Deduper

	// HasSession reports whether frames for id are currently accepted.
	HasSession(id string) bool

	// Enqueue pushes a frame for async processing. Returns an error wrapping
	// queue.ErrFull on backpressure.
	Enqueue(ctx context.Context, f model.Frame) error
}

// FramesHandler handles frame ingestion.
type FramesHandler struct {
	deps     FrameDependencies
	maxBatch int
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies, maxBatch int) *FramesHandler {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}
	return &FramesHandler{deps: deps, maxBatch: maxBatch}
}

// frameRequest is the wire shape of one frame.
type frameRequest struct {
	SessionID  string        `json:"session_id"`
	Seq        uint64        `json:"seq"`
	TS         *float64      `json:"ts"`
	Face       *bool         `json:"face,omitempty"`
	EAR        float64       `json:"ear"`
	LeftEAR    float64       `json:"left_ear,omitempty"`
	RightEAR   float64       `json:"right_ear,omitempty"`
	MAR        float64       `json:"mar"`
	MouthRatio float64       `json:"mouth_ratio,omitempty"`
	Pitch      float64       `json:"pitch"`
	Yaw        float64       `json:"yaw"`
	Roll       float64       `json:"roll,omitempty"`
	Gaze       *model.Gaze   `json:"gaze,omitempty"`
	Landmarks  []model.Point `json:"landmarks,omitempty"`
}

// framesRequest accepts either {"frames": [...]} or a single frame object.
type framesRequest struct {
	Frames []frameRequest `json:"frames"`
	frameRequest
}

func (f *frameRequest) validate() error {
	switch {
	case strings.TrimSpace(f.SessionID) == "":
		return errors.New("missing session_id")
	case f.Seq == 0:
		return errors.New("seq must be positive")
	case f.TS == nil:
		return errors.New("missing ts")
	case *f.TS < 0 || math.IsInf(*f.TS, 0):
		return errors.New("ts must be a non-negative number of seconds")
	}
	if n := len(f.Landmarks); n != 0 && n != meshPoints && n != meshPointsIrises {
		return fmt.Errorf("landmarks must hold %d or %d points, got %d", meshPoints, meshPointsIrises, n)
	}
	if f.Gaze != nil && (math.Abs(f.Gaze.X) > 1 || math.Abs(f.Gaze.Y) > 1) {
		return errors.New("gaze components must be within [-1, 1]")
	}
	return nil
}

func (f *frameRequest) toFrame() model.Frame {
	face := true
	if f.Face != nil {
		face = *f.Face
	}
	return model.Frame{
		SessionID:  f.SessionID,
		Seq:        f.Seq,
		Timestamp:  *f.TS,
		Face:       face,
		EAR:        f.EAR,
		LeftEAR:    f.LeftEAR,
		RightEAR:   f.RightEAR,
		MAR:        f.MAR,
		MouthRatio: f.MouthRatio,
		Pitch:      f.Pitch,
		Yaw:        f.Yaw,
		Roll:       f.Roll,
		Gaze:       f.Gaze,
		Landmarks:  f.Landmarks,
	}
}

type ackResponse struct {
	Status     string `json:"status"`
	Duplicate  bool   `json:"duplicate"`
	Accepted   int    `json:"accepted"`
	Duplicates int    `json:"duplicates"`
}

// HandlePostFrames handles POST /frames requests. Frames are idempotent on
// session_id + seq; a duplicate is acknowledged without being processed.
func (h *FramesHandler) HandlePostFrames(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req framesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordFrameRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	frames := req.Frames
	if len(frames) == 0 {
		frames = []frameRequest{req.frameRequest}
	}
	if len(frames) > h.maxBatch {
		metrics.RecordFrameRejected("batch_too_large")
		writeDomainError(w, fmt.Errorf("%w: %d frames, limit %d", ErrBatchTooLarge, len(frames), h.maxBatch))
		return
	}
	for i := range frames {
		if err := frames[i].validate(); err != nil {
			metrics.RecordFrameRejected("invalid")
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: frame %d: %w", ErrBadRequest, i, err))
			return
		}
		if !h.deps.HasSession(frames[i].SessionID) {
			metrics.RecordFrameRejected("unknown_session")
			writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("session %s not found", frames[i].SessionID))
			return
		}
	}

	ack := ackResponse{Status: "accepted"}
	for i := range frames {
		metrics.RecordFrameReceived()
		key := dedupe.Key(frames[i].SessionID, frames[i].Seq)
		if h.deps.SeenAndRecord(r.Context(), key) {
			metrics.RecordFrameDuplicate()
			ack.Duplicates++
			continue
		}
		if err := h.deps.Enqueue(r.Context(), frames[i].toFrame()); err != nil {
			// Roll back so the client can retry this frame.
			h.deps.Unrecord(r.Context(), key)
			metrics.RecordFrameRejected("backpressure")
			writeDomainError(w, fmt.Errorf("accepted %d of %d frames: %w", ack.Accepted, len(frames), err))
			return
		}
		ack.Accepted++
	}

	if ack.Accepted == 0 && ack.Duplicates > 0 {
		ack.Status = "duplicate"
		ack.Duplicate = true
		writeJSON(w, http.StatusOK, ack)
		return
	}
	writeJSON(w, http.StatusAccepted, ack)
}
