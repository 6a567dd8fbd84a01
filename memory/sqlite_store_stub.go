//go:build without_sqlite

package memory

import (
	"github.com/chayo-ai/memoryd/errors"
)

func newSqliteStore(dbPath string, dimension int) (Store, error) {
	return nil, errors.Wrapf(errors.ErrInvalidConfig, "this binary was built without sqlite support")
}
