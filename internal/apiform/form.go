package apiform

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"ingestor/internal/batch"
	"ingestor/internal/coerce"
)

// ApiForm is one collector's transform plan (spec §3): ordered
// pre-processors, ordered features, ordered post-processors.
type ApiForm struct {
	Name           string
	PreProcessors  []PreProcessor
	Features       []Feature
	PostProcessors []PostProcessor
}

// empty is the sentinel nil *batch.Batch Run returns for "skip this
// tick" — a pre- or post-processor that fails, and any stage that yields
// no rows, returns it rather than an error, since a malformed upstream
// document is routine, not exceptional (spec §4.2 edge cases). Run does
// return an error when the working data after pre-processing is not a
// row sequence, or when a feature or global column cannot be added.
var empty *batch.Batch

// CheckDependencies runs before a collect tick starts: any MergeStatic
// post-processor whose static file does not yet exist aborts the whole
// tick with a warning rather than letting Run fail deep inside
// post-processing.
func (f *ApiForm) CheckDependencies() error {
	for _, pp := range f.PostProcessors {
		m, ok := pp.(MergeStatic)
		if !ok {
			continue
		}
		if err := checkMergeStaticPath(m); err != nil {
			logrus.WithField("form", f.Name).WithError(err).Warn("apiform: tick skipped, merge_static dependency unavailable")
			return err
		}
	}
	return nil
}

// Run executes the full pipeline against one raw document, returning
// nil when any stage yields null/empty working data.
func (f *ApiForm) Run(doc interface{}) (*batch.Batch, error) {
	globals := map[string]Global{}
	working := doc
	for _, pp := range f.PreProcessors {
		next, err := pp.PreProcess(working, globals)
		if err != nil {
			logrus.WithField("form", f.Name).WithError(err).Debug("apiform: pre-process short-circuited tick")
			return empty, nil
		}
		if next == nil {
			return empty, nil
		}
		working = next
	}

	rows, ok := working.([]interface{})
	if !ok {
		return nil, fmt.Errorf("apiform: %s: working data is not a row sequence after pre-processing", f.Name)
	}
	if len(rows) == 0 {
		return empty, nil
	}

	b, err := f.extractAndTypecast(rows, globals)
	if err != nil {
		return nil, err
	}
	if b.Empty() {
		return empty, nil
	}

	for _, pp := range f.PostProcessors {
		b, err = pp.PostProcess(b)
		if err != nil {
			logrus.WithField("form", f.Name).WithError(err).Debug("apiform: post-process short-circuited tick")
			return empty, nil
		}
		if b == nil || b.Empty() {
			return empty, nil
		}
	}

	return b, nil
}

func (f *ApiForm) extractAndTypecast(rows []interface{}, globals map[string]Global) (*batch.Batch, error) {
	b := batch.New()
	for _, feat := range f.Features {
		values := make([]batch.Value, len(rows))
		for i, row := range rows {
			raw, err := feat.Extractor(row)
			if err != nil {
				raw = nil
			}
			values[i] = coerce.To(raw, feat.Kind, feat.Fallback)
		}
		if err := b.AddColumn(feat.Key, feat.Kind, values); err != nil {
			return nil, fmt.Errorf("apiform: %s: %w", f.Name, err)
		}
	}
	keys := make([]string, 0, len(globals))
	for key := range globals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		g := globals[key]
		v := coerce.To(g.Value, g.Kind, coerce.Fallback{})
		if err := b.ConstantColumn(key, g.Kind, v); err != nil {
			return nil, fmt.Errorf("apiform: %s: global %q: %w", f.Name, key, err)
		}
	}
	return b, nil
}
