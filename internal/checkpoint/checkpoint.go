// internal/checkpoint/checkpoint.go
//
// Stage outputs are stored as zstd-compressed JSON under
// "<namespace>/<stage>". The namespace is a fingerprint of the run inputs,
// so a changed tree or threshold never resumes from stale stages.

package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Checkpointer saves and restores typed stage outputs.
type Checkpointer struct {
	store Store
	ns    string
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// Fingerprint hashes the parts that define a run into a namespace.
func Fingerprint(parts ...string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// New wraps store under namespace ns.
func New(store Store, ns string) (*Checkpointer, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Checkpointer{store: store, ns: ns, enc: enc, dec: dec}, nil
}

// Namespace returns the run namespace.
func (c *Checkpointer) Namespace() string { return c.ns }

func (c *Checkpointer) key(stage string) []byte {
	return []byte(c.ns + "/" + stage)
}

// Save stores v as the output of stage.
func (c *Checkpointer) Save(ctx context.Context, stage string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("checkpoint %s: encode: %w", stage, err)
	}
	if err := c.store.Put(ctx, c.key(stage), c.enc.EncodeAll(raw, nil)); err != nil {
		return fmt.Errorf("checkpoint %s: %w", stage, err)
	}
	return nil
}

// Load restores the output of stage into v. ok is false when the stage has
// no checkpoint in this namespace.
func (c *Checkpointer) Load(ctx context.Context, stage string, v any) (ok bool, err error) {
	blob, err := c.store.Get(ctx, c.key(stage))
	if err != nil {
		return false, fmt.Errorf("checkpoint %s: %w", stage, err)
	}
	if blob == nil {
		return false, nil
	}
	raw, err := c.dec.DecodeAll(blob, nil)
	if err != nil {
		return false, fmt.Errorf("checkpoint %s: decompress: %w", stage, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("checkpoint %s: decode: %w", stage, err)
	}
	return true, nil
}

// Forget drops the checkpoint for each named stage.
func (c *Checkpointer) Forget(ctx context.Context, stages ...string) error {
	var errs []string
	for _, s := range stages {
		if err := c.store.Delete(ctx, c.key(s)); err != nil {
			errs = append(errs, s+": "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("checkpoint forget: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Close releases the codecs and the store.
func (c *Checkpointer) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.store.Close()
}
