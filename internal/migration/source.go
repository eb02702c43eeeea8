package migration

import (
	"cmp"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
)

//go:embed migrations
var migrationsFS embed.FS

type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMySQL    DatabaseType = "mysql"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// dialect database/sql 驱动名 + golang-migrate 的版本表驱动。
// sqlite 走 mattn/go-sqlite3 注册的 "sqlite3"，和 GORM 侧 glebarez 注册的 "sqlite" 互不干扰。
type dialect struct {
	sqlDriver string
	wrap      func(db *sql.DB, table string) (database.Driver, error)
}

var dialects = map[DatabaseType]dialect{
	DatabaseTypePostgres: {"postgres", func(db *sql.DB, table string) (database.Driver, error) {
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: table})
	}},
	DatabaseTypeMySQL: {"mysql", func(db *sql.DB, table string) (database.Driver, error) {
		return mysql.WithInstance(db, &mysql.Config{MigrationsTable: table})
	}},
	DatabaseTypeSQLite: {"sqlite3", func(db *sql.DB, table string) (database.Driver, error) {
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: table})
	}},
}

var typeAliases = map[string]DatabaseType{
	"postgres": DatabaseTypePostgres, "postgresql": DatabaseTypePostgres, "pg": DatabaseTypePostgres,
	"mysql": DatabaseTypeMySQL, "mariadb": DatabaseTypeMySQL,
	"sqlite": DatabaseTypeSQLite, "sqlite3": DatabaseTypeSQLite,
}

// ParseDatabaseType 大小写不敏感，接受常见别名
func ParseDatabaseType(s string) (DatabaseType, error) {
	if dt, ok := typeAliases[strings.ToLower(s)]; ok {
		return dt, nil
	}
	return "", fmt.Errorf("unsupported database type: %s", s)
}

// BuildDatabaseURL 拼出 golang-migrate 驱动接受的连接串；postgres 未指定 sslmode 时用 require
func BuildDatabaseURL(dbType DatabaseType, host string, port int, dbName, username, password, sslMode string) string {
	switch dbType {
	case DatabaseTypePostgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			username, password, host, port, dbName, cmp.Or(sslMode, "require"))
	case DatabaseTypeMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			username, password, host, port, dbName)
	case DatabaseTypeSQLite:
		return "file:" + dbName + "?_foreign_keys=1"
	}
	return ""
}

// GetMigrationsPath 某个方言在内嵌 FS 中的目录
func GetMigrationsPath(dbType DatabaseType) string {
	return path.Join("migrations", string(dbType))
}

type migrationFile struct {
	version uint
	name    string
}

// availableMigrations 列出 NNNNNN_name.up.sql，按版本升序，同版本只取一次
func availableMigrations(dbType DatabaseType) ([]migrationFile, error) {
	entries, err := fs.ReadDir(migrationsFS, GetMigrationsPath(dbType))
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var files []migrationFile
	for _, entry := range entries {
		base, ok := strings.CutSuffix(entry.Name(), ".up.sql")
		if entry.IsDir() || !ok {
			continue
		}
		ver, name, ok := strings.Cut(base, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(ver, 10, 32)
		if err != nil {
			continue
		}
		files = append(files, migrationFile{version: uint(v), name: name})
	}

	slices.SortFunc(files, func(a, b migrationFile) int { return int(a.version) - int(b.version) })
	return slices.CompactFunc(files, func(a, b migrationFile) bool { return a.version == b.version }), nil
}
