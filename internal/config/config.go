// Package config loads store configuration from a JSON-with-comments file
// using tailscale/hujson, so operators can annotate a config file the way
// they would annotate a C header's #define block.
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/calvinalkan/latchkv/internal/errs"
	"github.com/tailscale/hujson"
)

// Options mirrors the façade's Init parameters, per spec §6
// "Configuration": bucket_count, pre_allocation_factor, enable_concurrency.
type Options struct {
	BucketCount         uint32  `json:"bucket_count"`
	PreAllocationFactor float64 `json:"pre_allocation_factor"`
	EnableConcurrency   bool    `json:"enable_concurrency"`
}

// Load reads path as HuJSON (JSON plus comments and trailing commas),
// standardizes it, and unmarshals it into Options. Unrecognized fields
// are rejected, matching the closed configuration surface §6 describes.
func Load(path string) (Options, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errs.ErrInvalidConfiguration
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return Options{}, errs.ErrInvalidConfiguration
	}

	dec := json.NewDecoder(bytes.NewReader(std))
	dec.DisallowUnknownFields()

	var opts Options
	if err := dec.Decode(&opts); err != nil {
		return Options{}, errs.ErrInvalidConfiguration
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}

	return opts, nil
}

// Validate enforces the closed configuration contract: bucket_count must
// be a positive power of two, pre_allocation_factor must be in (0, 1].
func (o Options) Validate() error {
	if o.BucketCount == 0 || o.BucketCount&(o.BucketCount-1) != 0 {
		return errs.ErrInvalidConfiguration
	}

	if o.PreAllocationFactor <= 0 || o.PreAllocationFactor > 1 {
		return errs.ErrInvalidConfiguration
	}

	return nil
}
