package sqldb

import (
	"database/sql"
	"errors"

	"github.com/wansing/docflow/auth"
)

type group struct {
	db            *GroupDB // required for lazy loading
	id            int
	name          string
	members       map[int]interface{} // user id => struct{}
	membersLoaded bool                // lazy loading
}

func (g *group) ID() int {
	return g.id
}

func (g *group) Name() string {
	return g.name
}

func (g *group) HasMember(u auth.DBUser) (bool, error) {
	if u == nil {
		return false, nil
	}
	members, err := g.Members()
	if err != nil {
		return false, err
	}
	_, ok := members[u.ID()]
	return ok, nil
}

func (g *group) Members() (map[int]interface{}, error) {

	if !g.membersLoaded {

		g.members = make(map[int]interface{})

		rows, err := g.db.members.Query(g.id)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var userID int
			if err = rows.Scan(&userID); err != nil {
				return nil, err
			}
			g.members[userID] = struct{}{}
		}

		g.membersLoaded = true
	}

	return g.members, nil
}

type GroupDB struct {
	*DB
	delete     *sql.Stmt
	get        *sql.Stmt
	getAll     *sql.Stmt
	getByName  *sql.Stmt
	getOf      *sql.Stmt
	insert     *sql.Stmt
	join       *sql.Stmt
	leave      *sql.Stmt
	leaveUsers *sql.Stmt
	members    *sql.Stmt
}

func NewGroupDB(db *DB) *GroupDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS grp (
			id `+db.autoIncrement()+`,
			name varchar(64) NOT NULL,
			UNIQUE(name)
		)`,
		`CREATE TABLE IF NOT EXISTS membership (
			grp int(11) NOT NULL,
			usr int(11) NOT NULL,
			PRIMARY KEY (grp, usr)
		)`)

	var groupDB = &GroupDB{}
	groupDB.DB = db
	groupDB.delete = mustPrepare(db, "DELETE FROM grp WHERE id = ?")
	groupDB.get = mustPrepare(db, "SELECT id, name FROM grp WHERE id = ? LIMIT 1")
	groupDB.getAll = mustPrepare(db, "SELECT id, name FROM grp ORDER BY name LIMIT ? OFFSET ?")
	groupDB.getByName = mustPrepare(db, "SELECT id, name FROM grp WHERE name = ? LIMIT 1")
	groupDB.getOf = mustPrepare(db, "SELECT grp.id, grp.name FROM grp, membership WHERE grp.id = membership.grp AND membership.usr = ? ORDER BY grp.name")
	groupDB.insert = mustPrepare(db, "INSERT INTO grp (name) VALUES (?)")
	groupDB.join = mustPrepare(db, "INSERT INTO membership (grp, usr) VALUES (?, ?)")
	groupDB.leave = mustPrepare(db, "DELETE FROM membership WHERE grp = ? AND usr = ?")
	groupDB.leaveUsers = mustPrepare(db, "DELETE FROM membership WHERE grp = ?")
	groupDB.members = mustPrepare(db, "SELECT usr FROM membership WHERE grp = ?")
	return groupDB
}

func (db *GroupDB) Delete(g auth.DBGroup) error {

	tx, err := db.Begin()
	if err != nil {
		return err
	}

	_, err = tx.Stmt(db.leaveUsers).Exec(g.ID())
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Stmt(db.delete).Exec(g.ID())
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (db *GroupDB) getOne(stmt *sql.Stmt, arg interface{}) (auth.DBGroup, error) {
	var g = &group{
		db: db,
	}
	if err := stmt.QueryRow(arg).Scan(&g.id, &g.name); err != nil {
		return nil, err
	}
	return g, nil
}

func (db *GroupDB) GetGroup(id int) (auth.DBGroup, error) {
	return db.getOne(db.get, id)
}

func (db *GroupDB) GetGroupByName(name string) (auth.DBGroup, error) {
	return db.getOne(db.getByName, name)
}

func (db *GroupDB) getMultiple(stmt *sql.Stmt, args ...interface{}) ([]auth.DBGroup, error) {

	rows, err := stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups = []auth.DBGroup{}

	for rows.Next() {
		var id int
		var name string
		err = rows.Scan(&id, &name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, &group{
			db:   db,
			id:   id,
			name: name,
		})
	}

	return groups, rows.Err()
}

func (db *GroupDB) GetAllGroups(limit, offset int) ([]auth.DBGroup, error) {
	return db.getMultiple(db.getAll, limit, offset)
}

func (db *GroupDB) GetGroupsOf(u auth.DBUser) ([]auth.DBGroup, error) {
	return db.getMultiple(db.getOf, u.ID())
}

func (db *GroupDB) InsertGroup(name string) (auth.DBGroup, error) {
	if name == "" {
		return nil, errors.New("group name can't be empty")
	}
	if _, err := db.insert.Exec(name); err != nil {
		return nil, err
	}
	return db.GetGroupByName(name)
}

func (db *GroupDB) Join(g auth.DBGroup, user auth.DBUser) error {

	if user.ID() == 0 {
		return errors.New("can't add all users")
	}

	_, err := db.join.Exec(g.ID(), user.ID())
	if err != nil {
		return err
	}

	if g, ok := g.(*group); ok && g.membersLoaded {
		g.members[user.ID()] = struct{}{}
	}
	return nil
}

func (db *GroupDB) Leave(g auth.DBGroup, user auth.DBUser) error {

	if user.ID() == 0 {
		return errors.New("can't remove all users")
	}

	_, err := db.leave.Exec(g.ID(), user.ID())
	if err != nil {
		return err
	}

	if g, ok := g.(*group); ok && g.membersLoaded {
		delete(g.members, user.ID())
	}
	return nil
}
