package billing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type attachCall struct {
	Kind  ObjectKind
	ID    string
	Key   string
	Value string
}

// fakeProvider serves canned Stripe objects.
type fakeProvider struct {
	mu       sync.Mutex
	objects  map[string]*ProviderObject
	errs     map[string]error
	calls    map[string]int
	attached []attachCall
	block    bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		objects: make(map[string]*ProviderObject),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeProvider) put(obj *ProviderObject) *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[string(obj.Kind)+"/"+obj.ID] = obj
	return f
}

func (f *fakeProvider) fail(kind ObjectKind, id string, err error) *fakeProvider {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[string(kind)+"/"+id] = err
	return f
}

func (f *fakeProvider) callCount(kind ObjectKind, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[string(kind)+"/"+id]
}

func (f *fakeProvider) Retrieve(ctx context.Context, kind ObjectKind, id string) (*ProviderObject, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	key := string(kind) + "/" + id
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[key]++
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	obj, ok := f.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return copyObject(obj), nil
}

func (f *fakeProvider) AttachMetadata(_ context.Context, kind ObjectKind, id, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = append(f.attached, attachCall{Kind: kind, ID: id, Key: key, Value: value})
	if obj, ok := f.objects[string(kind)+"/"+id]; ok {
		if obj.Metadata == nil {
			obj.Metadata = map[string]string{}
		}
		obj.Metadata[key] = value
	}
	return nil
}

// eventPayload renders a Stripe event envelope around object.
func eventPayload(t *testing.T, id, eventType string, created time.Time, object map[string]any) []byte {
	t.Helper()
	ev := map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"api_version": "2025-07-30.basil",
		"data":        map[string]any{"object": object},
	}
	if !created.IsZero() {
		ev["created"] = created.Unix()
	}
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	return raw
}

// sign returns the Stripe-Signature header for payload.
func sign(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func notification(t *testing.T, id, eventType string, object map[string]any) *Notification {
	t.Helper()
	n, err := ParseNotification(eventPayload(t, id, eventType, time.Time{}, object))
	require.NoError(t, err)
	return n
}
