package sqldb

import (
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/wansing/docflow/auth"
)

var ErrAuth = errors.New("authentication failed")

var fold = cases.Fold()

func clean(name string) string {
	return fold.String(strings.TrimSpace(name))
}

type user struct {
	id   int
	name string
	pass string // bcrypt hash, empty if no password has been set
}

func (u *user) ID() int {
	return u.id
}

func (u *user) Name() string {
	return u.name
}

func (u *user) checkPassword(password string) bool {
	if u.pass == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.pass), []byte(password)) == nil
}

type UserDB struct {
	*DB
	delete      *sql.Stmt
	getAll      *sql.Stmt
	get         *sql.Stmt
	getByName   *sql.Stmt
	insert      *sql.Stmt
	setPassword *sql.Stmt
}

func NewUserDB(db *DB) *UserDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS usr (
			id `+db.autoIncrement()+`,
			name varchar(128) NOT NULL,
			password varchar(64) NOT NULL DEFAULT '',
			UNIQUE(name)
		)`)

	var userDB = &UserDB{}
	userDB.DB = db
	userDB.delete = mustPrepare(db, "DELETE FROM usr WHERE id = ?")
	userDB.get = mustPrepare(db, "SELECT id, name, password FROM usr WHERE id = ? LIMIT 1")
	userDB.getAll = mustPrepare(db, "SELECT id, name, password FROM usr ORDER BY name LIMIT ? OFFSET ?")
	userDB.getByName = mustPrepare(db, "SELECT id, name, password FROM usr WHERE name = ? LIMIT 1")
	userDB.insert = mustPrepare(db, "INSERT INTO usr (name) VALUES (?)") // empty password field is safe because no bcrypt hash equals it
	userDB.setPassword = mustPrepare(db, "UPDATE usr SET password = ? WHERE id = ?")
	return userDB
}

func (db *UserDB) ChangePassword(u auth.DBUser, old, new string) error {
	current, err := db.getOne(db.get, u.ID())
	if err != nil {
		return err
	}
	if !current.checkPassword(old) {
		return ErrAuth
	}
	return db.SetPassword(u, new)
}

func (db *UserDB) Delete(u auth.DBUser) error {
	_, err := db.delete.Exec(u.ID())
	return err
}

func (db *UserDB) getOne(stmt *sql.Stmt, arg interface{}) (*user, error) {
	var u = &user{}
	return u, stmt.QueryRow(arg).Scan(&u.id, &u.name, &u.pass)
}

// GetUser may return sql.ErrNoRows.
func (db *UserDB) GetUser(id int) (auth.DBUser, error) {
	u, err := db.getOne(db.get, id)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByName may return sql.ErrNoRows.
func (db *UserDB) GetUserByName(name string) (auth.DBUser, error) {
	u, err := db.getOne(db.getByName, clean(name))
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (db *UserDB) GetAllUsers(limit, offset int) ([]auth.DBUser, error) {

	var all = []auth.DBUser{}

	rows, err := db.getAll.Query(limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u = &user{}
		err = rows.Scan(&u.id, &u.name, &u.pass)
		if err != nil {
			return nil, err
		}
		all = append(all, u)
	}

	return all, rows.Err()
}

func (db *UserDB) InsertUser(name string) (auth.DBUser, error) {
	name = clean(name)
	if name == "" {
		return nil, errors.New("user name can't be empty")
	}
	if _, err := db.insert.Exec(name); err != nil {
		return nil, err
	}
	return db.GetUserByName(name)
}

func (db *UserDB) LoginUser(name, password string) (auth.DBUser, error) {

	u, err := db.getOne(db.getByName, clean(name))
	if err == sql.ErrNoRows {
		return nil, ErrAuth // user not found
	}
	if err != nil {
		return nil, err
	}

	if !u.checkPassword(password) {
		return nil, ErrAuth // wrong password
	}

	return u, nil
}

func (db *UserDB) SetPassword(u auth.DBUser, password string) error {

	if password == "" {
		return errors.New("no password given")
	}

	if u.ID() == 0 {
		return errors.New("can't set password of user 0")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	_, err = db.setPassword.Exec(string(hash), u.ID())
	if err != nil {
		return err
	}

	if u, ok := u.(*user); ok {
		u.pass = string(hash)
	}
	return nil
}
