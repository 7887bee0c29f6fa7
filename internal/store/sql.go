package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"gitlab.com/dirk.krummacker/persona-service/internal/model"
)

// columns is the select list matching the db tags of model.Persona.
const columns = "id_persona, nombre, apellido, fecha_nacimiento, email, telefono, direccion, fecha_registro"

// SQLStore keeps personas in a relational database. All statements except the filter query are
// prepared once when the store is created.
type SQLStore struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a persona.
	insert *sqlx.NamedStmt
	// selectAll is a prepared statement for listing all personas by given name.
	selectAll *sqlx.Stmt
	// selectWhereId is a prepared statement for selecting the persona with a given id.
	selectWhereId *sqlx.Stmt
	// update is a prepared statement for overwriting the mutable columns of a persona.
	update *sqlx.NamedStmt
	// deleteWhereId is a prepared statement for deleting the persona with a given id.
	deleteWhereId *sqlx.Stmt
	// existsWhereId is a prepared statement checking for the persona with a given id.
	existsWhereId *sqlx.Stmt
	// emailTaken is a prepared statement checking for another persona with a given email.
	emailTaken *sqlx.Stmt
}

// OpenSQL connects to the database with the specified driver name ("mysql" or "postgres") and
// data source name.
func OpenSQL(driverName string, dsn string) (*SQLStore, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}
	s, err := NewSQLStore(sqlDB, driverName)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps the specified sql database with sqlx and prepares all statements. The database
// argument can be a real database for production use or a mock database within unit tests.
func NewSQLStore(sqlDB *sql.DB, driverName string) (*SQLStore, error) {
	db := sqlx.NewDb(sqlDB, driverName)
	s := &SQLStore{db: db}
	var err error

	insertSQL := `
		INSERT INTO personas (nombre, apellido, fecha_nacimiento, email, telefono, direccion, fecha_registro)
		VALUES (:nombre, :apellido, :fecha_nacimiento, :email, :telefono, :direccion, :fecha_registro)`
	if s.returningID() {
		insertSQL += " RETURNING id_persona"
	}
	if s.insert, err = db.PrepareNamed(insertSQL); err != nil {
		return nil, fmt.Errorf("could not prepare insert: %w", err)
	}
	if s.selectAll, err = db.Preparex(`
		SELECT ` + columns + ` FROM personas ORDER BY nombre, id_persona
	`); err != nil {
		return nil, fmt.Errorf("could not prepare select: %w", err)
	}
	if s.selectWhereId, err = db.Preparex(db.Rebind(`
		SELECT ` + columns + ` FROM personas WHERE id_persona = ?
	`)); err != nil {
		return nil, fmt.Errorf("could not prepare select by id: %w", err)
	}
	if s.update, err = db.PrepareNamed(`
		UPDATE personas
		SET nombre = :nombre, apellido = :apellido, fecha_nacimiento = :fecha_nacimiento,
			email = :email, telefono = :telefono, direccion = :direccion
		WHERE id_persona = :id_persona
	`); err != nil {
		return nil, fmt.Errorf("could not prepare update: %w", err)
	}
	if s.deleteWhereId, err = db.Preparex(db.Rebind(`
		DELETE FROM personas WHERE id_persona = ?
	`)); err != nil {
		return nil, fmt.Errorf("could not prepare delete: %w", err)
	}
	if s.existsWhereId, err = db.Preparex(db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM personas WHERE id_persona = ?)
	`)); err != nil {
		return nil, fmt.Errorf("could not prepare exists: %w", err)
	}
	if s.emailTaken, err = db.Preparex(db.Rebind(`
		SELECT EXISTS(SELECT 1 FROM personas WHERE email = ? AND id_persona <> ?)
	`)); err != nil {
		return nil, fmt.Errorf("could not prepare email check: %w", err)
	}
	return s, nil
}

// returningID is true for dialects that report generated keys through RETURNING instead of
// LastInsertId.
func (s *SQLStore) returningID() bool {
	return s.db.DriverName() == "postgres"
}

func (s *SQLStore) FindAll(ctx context.Context) ([]model.Persona, error) {
	personas := []model.Persona{}
	if err := s.selectAll.SelectContext(ctx, &personas); err != nil {
		return nil, err
	}
	return personas, nil
}

func (s *SQLStore) FindByID(ctx context.Context, id int64) (model.Persona, error) {
	var persona model.Persona
	err := s.selectWhereId.GetContext(ctx, &persona, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Persona{}, ErrNotFound
	}
	if err != nil {
		return model.Persona{}, err
	}
	return persona, nil
}

func (s *SQLStore) Insert(ctx context.Context, persona model.Persona) (int64, error) {
	if s.returningID() {
		var id int64
		if err := s.insert.QueryRowxContext(ctx, persona).Scan(&id); err != nil {
			return 0, translate(err)
		}
		return id, nil
	}
	result, err := s.insert.ExecContext(ctx, persona)
	if err != nil {
		return 0, translate(err)
	}
	return result.LastInsertId()
}

func (s *SQLStore) Update(ctx context.Context, persona model.Persona) error {
	if _, err := s.update.ExecContext(ctx, persona); err != nil {
		return translate(err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.deleteWhereId.ExecContext(ctx, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

func (s *SQLStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.existsWhereId.GetContext(ctx, &exists, id); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SQLStore) EmailTaken(ctx context.Context, email string, excludeID model.ID) (bool, error) {
	// Ids start at 1, so 0 never excludes a stored persona.
	var taken bool
	if err := s.emailTaken.GetContext(ctx, &taken, email, excludeID.Int64()); err != nil {
		return false, err
	}
	return taken, nil
}

// Filter builds the WHERE clause from the supplied criteria only. Without any criterion it
// returns all personas.
func (s *SQLStore) Filter(ctx context.Context, criteria model.Criteria) ([]model.Persona, error) {
	var conditions []string
	var args []interface{}
	addLike := func(column string, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		conditions = append(conditions, "LOWER("+column+") LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(value))+"%")
	}
	addLike("nombre", criteria.GivenName)
	addLike("apellido", criteria.FamilyName)
	addLike("email", criteria.Email)

	query := "SELECT " + columns + " FROM personas"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY nombre, id_persona"

	personas := []model.Persona{}
	if err := s.db.SelectContext(ctx, &personas, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return personas, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB returns the underlying sqlx handle.
func (s *SQLStore) DB() *sqlx.DB {
	return s.db
}

// Close releases the prepared statements and the database handle.
func (s *SQLStore) Close() error {
	for _, closer := range []interface{ Close() error }{
		s.insert, s.selectAll, s.selectWhereId, s.update, s.deleteWhereId, s.existsWhereId, s.emailTaken,
	} {
		closer.Close()
	}
	return s.db.Close()
}

// escapeLike makes the LIKE wildcards in user input match literally. Both MySQL and PostgreSQL use
// the backslash as default escape character.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// translate maps unique constraint violations to ErrDuplicateEmail. The email column is the only
// unique column besides the generated primary key.
func translate(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, pqErr.Message)
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, myErr.Message)
	}
	return err
}
