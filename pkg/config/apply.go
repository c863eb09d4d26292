package config

import (
	"errors"
	"fmt"

	"github.com/getmockd/mockman/pkg/instance"
)

// Apply creates one instance per server declared in doc. A server with a
// blank serverId is rejected. A failure on any one server is recorded and
// does not prevent the rest from being created; all failures are joined
// into a single returned error.
func Apply(doc *Document, mgr *instance.Manager) error {
	var errs []error
	for i, sd := range doc.Servers {
		if sd.Server.ServerID == "" {
			errs = append(errs, fmt.Errorf("servers[%d]: serverId must not be blank", i))
			continue
		}
		spec, err := sd.ToSpec()
		if err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", sd.Server.ServerID, err))
			continue
		}
		if _, err := mgr.Create(spec); err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", spec.ID, err))
		}
	}
	return errors.Join(errs...)
}

// LoadAndApply loads the document at path and applies it to mgr in one
// step. The CLI's "serve" command calls LoadFromFile and Apply separately
// instead, so it can report the declared server count.
func LoadAndApply(path string, mgr *instance.Manager) error {
	doc, err := LoadFromFile(path)
	if err != nil {
		return fmt.Errorf("loading configuration %q: %w", path, err)
	}
	return Apply(doc, mgr)
}
