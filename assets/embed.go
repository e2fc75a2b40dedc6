package assets

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql seed/cars.json
var FS embed.FS

// Migrations returns the SQL migration files rooted at "sql".
func Migrations() fs.FS {
	sub, err := fs.Sub(FS, "sql")
	if err != nil {
		panic(err) // embedded path is fixed at build time
	}
	return sub
}

// SeedCars returns the bundled sample corpus (JSON array of listings).
func SeedCars() ([]byte, error) {
	return FS.ReadFile("seed/cars.json")
}
