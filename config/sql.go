package config

import (
	"database/sql"

	_ "github.com/ziutek/mymysql/godrv"
	"gopkg.in/gorp.v2"
)

const rulesTable = "msgproxy_rules"

// ruleRow maps msgproxy_rules:
//
//	CREATE TABLE msgproxy_rules (
//	  id INT AUTO_INCREMENT PRIMARY KEY,
//	  rule_id VARCHAR(64) NOT NULL,
//	  kind VARCHAR(32) NOT NULL,
//	  exact TEXT NULL,
//	  regex TEXT NULL,
//	  template TEXT NOT NULL,
//	  priority INT NOT NULL DEFAULT 0,
//	  stop_on_match BOOL NOT NULL DEFAULT 1,
//	  enabled BOOL NOT NULL DEFAULT 1
//	);
type ruleRow struct {
	Id          int64          `db:"id"`
	RuleID      string         `db:"rule_id"`
	Kind        string         `db:"kind"`
	Exact       sql.NullString `db:"exact"`
	Regex       sql.NullString `db:"regex"`
	Template    string         `db:"template"`
	Priority    int            `db:"priority"`
	StopOnMatch bool           `db:"stop_on_match"`
	Enabled     bool           `db:"enabled"`
}

func (r *ruleRow) spec() RuleSpec {
	s := RuleSpec{
		ID:          r.RuleID,
		Kind:        r.Kind,
		Template:    r.Template,
		Priority:    r.Priority,
		StopOnMatch: &r.StopOnMatch,
		Enabled:     &r.Enabled,
	}
	if r.Exact.Valid {
		s.Exact = &r.Exact.String
	}
	if r.Regex.Valid {
		s.Regex = r.Regex.String
	}
	return s
}

// NewDbMap opens a mymysql connection, dsn as in godrv:
// tcp:host:3306*database/user/password
func NewDbMap(dsn string) (*gorp.DbMap, error) {
	db, err := sql.Open("mymysql", dsn)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	dbmap := &gorp.DbMap{Db: db, Dialect: gorp.MySQLDialect{Engine: "InnoDB", Encoding: "UTF8"}}
	dbmap.AddTableWithName(ruleRow{}, rulesTable).SetKeys(true, "Id")
	return dbmap, nil
}

func selectRules(dbmap *gorp.DbMap) (rows []*ruleRow, err error) {
	_, err = dbmap.Select(&rows, "SELECT * FROM "+rulesTable+" ORDER BY priority ASC, id ASC")
	return
}
