package servicetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mamexa0977/alx-travel-app-0x03/internal/gateway"
	"github.com/mamexa0977/alx-travel-app-0x03/internal/queue"
)

// Gateway is a scriptable payment gateway.  With no funcs set, Initialize
// returns a checkout URL derived from the tx_ref and Verify reports
// success.
type Gateway struct {
	InitializeFunc func(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error)
	VerifyFunc     func(ctx context.Context, ref string) (gateway.VerifyResult, error)

	InitializeCalls atomic.Int32
	VerifyCalls     atomic.Int32
}

func (g *Gateway) Initialize(ctx context.Context, req gateway.InitializeRequest) (gateway.InitializeResult, error) {
	g.InitializeCalls.Add(1)
	if g.InitializeFunc != nil {
		return g.InitializeFunc(ctx, req)
	}
	url := "https://checkout.example.test/" + req.TxRef
	raw, _ := json.Marshal(map[string]any{
		"status": "success",
		"data":   map[string]string{"checkout_url": url},
	})
	return gateway.InitializeResult{CheckoutURL: url, Reference: req.TxRef, Raw: raw}, nil
}

func (g *Gateway) Verify(ctx context.Context, ref string) (gateway.VerifyResult, error) {
	g.VerifyCalls.Add(1)
	if g.VerifyFunc != nil {
		return g.VerifyFunc(ctx, ref)
	}
	return SuccessVerify(ref), nil
}

// SuccessVerify is a successful verification result for ref.
func SuccessVerify(ref string) gateway.VerifyResult {
	raw := json.RawMessage(fmt.Sprintf(`{"status":"success","data":{"status":"success","tx_ref":%q,"payment_method":"telebirr"}}`, ref))
	return gateway.VerifyResult{Success: true, Status: "success", PaymentMethod: "telebirr", Raw: raw}
}

// FailedVerify is a declined verification result for ref.
func FailedVerify(ref string) gateway.VerifyResult {
	raw := json.RawMessage(fmt.Sprintf(`{"status":"success","data":{"status":"failed","tx_ref":%q}}`, ref))
	return gateway.VerifyResult{Success: false, Status: "failed", Raw: raw}
}

// Notifier records every enqueued notification.
type Notifier struct {
	mu   sync.Mutex
	sent []queue.Notification
}

func (n *Notifier) Enqueue(msg queue.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

// Sent returns a copy of the recorded notifications.
func (n *Notifier) Sent() []queue.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]queue.Notification(nil), n.sent...)
}

// Count returns how many notifications of kind were recorded.
func (n *Notifier) Count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.sent {
		if m.Kind == kind {
			c++
		}
	}
	return c
}
