// Package sqlcmdb reads LANs, tags, classifications and automate
// configuration instances straight from the platform's PostgreSQL database.
package sqlcmdb

import (
	"context"
	"database/sql"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/spectrocloud/ddi-ipam-automation/pkg/cmdb"
)

const (
	findLANQuery = `SELECT id, name FROM lans WHERE name = $1 ORDER BY id LIMIT 1`

	lanTagsQuery = `SELECT t.name FROM taggings g JOIN tags t ON t.id = g.tag_id
		WHERE g.taggable_type = 'Lan' AND g.taggable_id = $1 ORDER BY t.name`

	classificationQuery = `SELECT c.description FROM classifications c JOIN tags t ON t.id = c.tag_id
		WHERE t.name = $1`

	instanceValuesQuery = `SELECT f.name, v.value FROM miq_ae_values v
		JOIN miq_ae_fields f ON f.id = v.field_id
		JOIN miq_ae_instances i ON i.id = v.instance_id
		WHERE i.relative_path = $1`
)

type Store struct {
	db        *sql.DB
	decrypter cmdb.Decrypter
}

var (
	_ cmdb.CMDB        = &Store{}
	_ cmdb.ConfigStore = &Store{}
)

func New(db *sql.DB, decrypter cmdb.Decrypter) *Store {
	return &Store{
		db:        db,
		decrypter: decrypter,
	}
}

// Open connects to the database at dsn, e.g.
// "postgres://root@localhost/vmdb_production?sslmode=disable".
func Open(ctx context.Context, dsn string, decrypter cmdb.Decrypter) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open cmdb database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to cmdb database")
	}
	return New(db, decrypter), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindLAN(ctx context.Context, name string) (*cmdb.LAN, error) {
	var id int64
	lan := &cmdb.LAN{}
	err := s.db.QueryRowContext(ctx, findLANQuery, name).Scan(&id, &lan.Name)
	if err == sql.ErrNoRows {
		return nil, cmdb.NotFound("lan %s", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query lan %s", name)
	}

	rows, err := s.db.QueryContext(ctx, lanTagsQuery, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query tags of lan %s", name)
	}
	defer rows.Close()

	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, errors.Wrapf(err, "failed to read tag of lan %s", name)
		}
		lan.Tags = append(lan.Tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read tags of lan %s", name)
	}

	return lan, nil
}

func (s *Store) FindClassification(ctx context.Context, category, name string) (*cmdb.Classification, error) {
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, classificationQuery, "/managed/"+category+"/"+name).Scan(&description)
	if err == sql.ErrNoRows {
		return nil, cmdb.NotFound("classification %s/%s", category, name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query classification %s/%s", category, name)
	}

	return &cmdb.Classification{
		Category:    category,
		Name:        name,
		Description: description.String,
	}, nil
}

func (s *Store) Instantiate(ctx context.Context, path string) (*cmdb.ConfigObject, error) {
	rows, err := s.db.QueryContext(ctx, instanceValuesQuery, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query configuration object %s", path)
	}
	defer rows.Close()

	attributes := map[string]string{}
	for rows.Next() {
		var field string
		var value sql.NullString
		if err := rows.Scan(&field, &value); err != nil {
			return nil, errors.Wrapf(err, "failed to read configuration object %s", path)
		}
		attributes[field] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read configuration object %s", path)
	}

	if len(attributes) == 0 {
		return nil, cmdb.NotFound("configuration object %s", path)
	}
	return cmdb.NewConfigObject(path, attributes, s.decrypter), nil
}
