package migrate

import (
	"context"
	"fmt"

	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/sqlite"
	"github.com/dbsmedya/sqlora/internal/typemap"
)

// Plan generates the DDL script for a source database without connecting to
// Oracle, so the creation order and type mappings can be reviewed first.
func (p *Pipeline) Plan(ctx context.Context, sourcePath string) (*ddl.Script, error) {
	user, password := p.credentials(sourcePath)

	src, err := sqlite.Open(sourcePath, p.log.WithDatabase(sourcePath))
	if err != nil {
		return nil, err
	}
	defer src.Close()

	schema, err := src.Extract(ctx)
	if err != nil {
		return nil, err
	}
	if schema.Len() == 0 {
		return nil, fmt.Errorf("source database %s has no tables", sourcePath)
	}

	return p.generate(ctx, src, schema, p.Mode(), user, password, typemap.Options{
		UseVarchar: p.cfg.UseVarchar,
		SampleText: p.cfg.SampleText,
	})
}
