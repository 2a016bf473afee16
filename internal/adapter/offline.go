package adapter

import (
	"context"
	"encoding/json"
	"fmt"
)

// Offline is the remote store used when no remote endpoint is configured.
// Every write fails transiently (so the coordinator retries and then drops
// silently, exactly as with a dead network) and listeners deliver nothing.
type Offline struct{}

var _ RemoteStore = Offline{}
var _ SnapshotSource = Offline{}

func (Offline) PutDocument(context.Context, string, string, string, json.RawMessage) error {
	return fmt.Errorf("%w: no remote endpoint configured", ErrRemoteUnavailable)
}

func (Offline) DeleteDocument(context.Context, string, string, string) error {
	return fmt.Errorf("%w: no remote endpoint configured", ErrRemoteUnavailable)
}

func (Offline) PutBatch(context.Context, string, string, map[string]json.RawMessage) (map[string]string, error) {
	return nil, fmt.Errorf("%w: no remote endpoint configured", ErrRemoteUnavailable)
}

func (Offline) PutSettings(context.Context, string, json.RawMessage) error {
	return fmt.Errorf("%w: no remote endpoint configured", ErrRemoteUnavailable)
}

func (Offline) Listen(ctx context.Context, _, _ string) (<-chan []json.RawMessage, error) {
	out := make(chan []json.RawMessage)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}
