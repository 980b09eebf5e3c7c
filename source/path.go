package source

import (
	"fmt"
	"os"
	"strings"
)

// Path names a network input, either a local file or a mongodb collection
// written as "db.collection".
type Path struct {
	File string
	DB   string
	Coll string
}

// NewPath resolves the argument as a file path if one exists, otherwise as a
// db.collection reference. An empty argument yields a nil path.
func NewPath(filePathOrColl string) (*Path, error) {
	if _, err := os.Stat(filePathOrColl); err == nil {
		return &Path{
			File: filePathOrColl,
		}, nil
	}
	dbDotColl := strings.TrimSpace(filePathOrColl)
	if dbDotColl == "" {
		return nil, nil
	}
	splitted := strings.Split(dbDotColl, ".")
	if len(splitted) != 2 {
		return nil, fmt.Errorf("dbDotColl is invalid: %s", dbDotColl)
	}
	return &Path{
		DB:   splitted[0],
		Coll: splitted[1],
	}, nil
}

func (p *Path) GetDb() string {
	return p.DB
}

func (p *Path) GetColl() string {
	return p.Coll
}
