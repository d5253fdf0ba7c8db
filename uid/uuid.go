package uid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type UUIDOptions struct {
	// v1, v4, v6, v7
	Version string `cfg:"version"`
	// uniqueidentifier 列需要带连字符的形式
	WithoutHyphens bool `cfg:"withoutHyphens"`
}

type UUIDGenerator struct {
	version        string
	withoutHyphens bool
}

func NewUUIDGeneratorWithOptions(options *UUIDOptions) (*UUIDGenerator, error) {
	if options == nil {
		options = &UUIDOptions{}
	}
	if options.Version == "" {
		options.Version = "v4"
	}
	switch options.Version {
	case "v1", "v4", "v6", "v7":
	default:
		return nil, errors.Errorf("unsupported uuid version %q", options.Version)
	}
	return &UUIDGenerator{
		version:        options.Version,
		withoutHyphens: options.WithoutHyphens,
	}, nil
}

func (g *UUIDGenerator) Generate() (string, error) {
	var u uuid.UUID
	var err error
	switch g.version {
	case "v1":
		u, err = uuid.NewUUID()
	case "v6":
		u, err = uuid.NewV6()
	case "v7":
		u, err = uuid.NewV7()
	default:
		u, err = uuid.NewRandom()
	}
	if err != nil {
		return "", errors.Wrapf(err, "generate uuid %s failed", g.version)
	}

	if g.withoutHyphens {
		return hex.EncodeToString(u[:]), nil
	}
	return u.String(), nil
}
