package ledger

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"golang.org/x/net/websocket"

	apperrors "github.com/louisbranch/kalori/internal/platform/errors"
	"github.com/louisbranch/kalori/internal/platform/httpx"
	"github.com/louisbranch/kalori/internal/platform/requestctx"
	"github.com/louisbranch/kalori/internal/services/ledger/notify"
	"github.com/louisbranch/kalori/internal/services/ledger/render"
)

// Stream frame types.
const (
	FrameRewardsState   = "rewards.state"
	FrameRewardsUpdated = "rewards.updated"
	FramePing           = "ping"
	FrameError          = "error"
)

type streamFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type streamUpdatePayload struct {
	State         rewardStateResponse `json:"state"`
	NewlyUnlocked []unlockResponse    `json:"newly_unlocked"`
}

type streamPingPayload struct {
	ServerTime string `json:"server_time"`
}

type streamErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type streamPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newStreamPeer(encoder *json.Encoder) *streamPeer {
	return &streamPeer{encoder: encoder}
}

func (p *streamPeer) writeFrame(frameType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(streamFrame{Type: frameType, Payload: raw})
}

// handleStream upgrades to a websocket that sends the current reward state
// and then every newer state for the authenticated user.
func (h handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	if h.streams == nil {
		httpx.WriteError(w, r, errors.New("reward stream is not configured"))
		return
	}
	sub, err := h.streams.Subscribe(requestctx.UserIDFromContext(r.Context()))
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	defer sub.Close()

	localizer := localizerFor(r)
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveStream(conn, sub, localizer)
	}).ServeHTTP(w, r)
}

func (h handlers) serveStream(conn *websocket.Conn, sub *notify.Subscription, localizer render.Localizer) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := conn.Request().Context()
	peer := newStreamPeer(json.NewEncoder(conn))
	var view notify.View

	state, err := h.service.Rewards(ctx, sub.UserID())
	if err != nil {
		log.Printf("reward stream initial read: user=%s err=%v", sub.UserID(), err)
		_ = peer.writeFrame(FrameError, streamErrorPayload{
			Code:    string(apperrors.GetCode(err)),
			Message: "reward state unavailable",
		})
		return
	}
	view.Apply(state)
	current, _ := view.Current()
	if err := peer.writeFrame(FrameRewardsState, newRewardStateResponse(current)); err != nil {
		return
	}

	// Clients only send close frames; any read error ends the stream.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			var discard string
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case update, ok := <-sub.Updates():
			if !ok {
				return
			}
			if !view.Apply(update.State) {
				continue
			}
			current, _ := view.Current()
			if err := peer.writeFrame(FrameRewardsUpdated, streamUpdatePayload{
				State:         newRewardStateResponse(current),
				NewlyUnlocked: newUnlockResponses(update.NewlyUnlocked, localizer),
			}); err != nil {
				return
			}
		case <-ticker.C:
			if err := peer.writeFrame(FramePing, streamPingPayload{ServerTime: formatTime(h.clock())}); err != nil {
				return
			}
		}
	}
}

func logWriteFailure(err error) {
	log.Printf("write ledger response: %v", err)
}
