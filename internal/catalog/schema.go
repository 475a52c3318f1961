package catalog

import "strings"

const everyoneName = "Everyone logged in"

// The DDL is written once with placeholders for the column types that differ
// between SQLite and MySQL:
//
//	{{ID}}      auto increment primary key
//	{{TEXT}}    long text
//	{{KEY}}     short indexable text
//	{{NOW}}     modification timestamp with default
//	{{ENGINE}}  table options
var tableSQL = []string{
	"CREATE TABLE IF NOT EXISTS `list` (" +
		"`id` {{ID}}, " +
		"`name` {{KEY}} NOT NULL, " +
		"`revision_id` BIGINT NOT NULL DEFAULT 0" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `header_schema` (" +
		"`id` {{ID}}, " +
		"`name` {{KEY}} NOT NULL, " +
		"`json` {{TEXT}} NOT NULL" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `header` (" +
		"`id` {{ID}}, " +
		"`list_id` BIGINT NOT NULL, " +
		"`revision_id` BIGINT NOT NULL, " +
		"`header_schema_id` BIGINT NOT NULL, " +
		"UNIQUE (`list_id`,`revision_id`)" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `row` (" +
		"`id` {{ID}}, " +
		"`list_id` BIGINT NOT NULL, " +
		"`row_num` BIGINT NOT NULL, " +
		"`revision_id` BIGINT NOT NULL, " +
		"`json` {{TEXT}} NOT NULL, " +
		"`json_md5` CHAR(32) NOT NULL, " +
		"`user_id` BIGINT NOT NULL DEFAULT 0, " +
		"`modified` {{NOW}}, " +
		"UNIQUE (`list_id`,`row_num`,`revision_id`)" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `data_source` (" +
		"`id` {{ID}}, " +
		"`list_id` BIGINT NOT NULL, " +
		"`source_type` VARCHAR(16) NOT NULL, " +
		"`source_format` VARCHAR(16) NOT NULL, " +
		"`location` {{TEXT}} NOT NULL, " +
		"`user_id` BIGINT NOT NULL" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `user` (" +
		"`id` {{ID}}, " +
		"`name` {{KEY}} NOT NULL, " +
		"`is_wiki_user` TINYINT NOT NULL DEFAULT 0, " +
		"`auth_token` VARCHAR(64) NULL, " +
		"UNIQUE (`name`,`is_wiki_user`), " +
		"UNIQUE (`auth_token`)" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `access` (" +
		"`list_id` BIGINT NOT NULL, " +
		"`user_id` BIGINT NOT NULL, " +
		"`right` VARCHAR(64) NOT NULL, " +
		"PRIMARY KEY (`list_id`,`user_id`,`right`)" +
		"){{ENGINE}}",

	"CREATE TABLE IF NOT EXISTS `file` (" +
		"`id` {{ID}}, " +
		"`path` {{TEXT}} NOT NULL, " +
		"`user_id` BIGINT NOT NULL, " +
		"`original_filename` {{KEY}} NOT NULL DEFAULT ''" +
		"){{ENGINE}}",
}

// indexSQL holds indexes created separately because MySQL has no
// CREATE INDEX IF NOT EXISTS; they are inlined into its table DDL instead.
var indexSQL = []string{
	"CREATE INDEX IF NOT EXISTS `idx_row_list_md5` ON `row` (`list_id`,`json_md5`)",
	"CREATE INDEX IF NOT EXISTS `idx_data_source_list` ON `data_source` (`list_id`)",
	"CREATE INDEX IF NOT EXISTS `idx_access_user` ON `access` (`user_id`)",
}

var mysqlInlineIndexes = map[string]string{
	"`row`":         ", KEY `idx_row_list_md5` (`list_id`,`json_md5`)",
	"`data_source`": ", KEY `idx_data_source_list` (`list_id`)",
	"`access`":      ", KEY `idx_access_user` (`user_id`)",
}

// schemaSQL renders the DDL for a dialect.
func schemaSQL(d Dialect) []string {
	var r *strings.Replacer
	if d == DialectMySQL {
		r = strings.NewReplacer(
			"{{ID}}", "BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY",
			"{{TEXT}}", "MEDIUMTEXT",
			"{{KEY}}", "VARCHAR(255)",
			"{{NOW}}", "TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP",
			"{{ENGINE}}", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
		)
	} else {
		r = strings.NewReplacer(
			"{{ID}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
			"{{TEXT}}", "TEXT",
			"{{KEY}}", "TEXT",
			"{{NOW}}", "TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP",
			"{{ENGINE}}", "",
		)
	}

	out := make([]string, 0, len(tableSQL)+len(indexSQL))
	for _, stmt := range tableSQL {
		if d == DialectMySQL {
			for table, idx := range mysqlInlineIndexes {
				if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "+table+" (") {
					stmt = strings.Replace(stmt, "){{ENGINE}}", idx+"){{ENGINE}}", 1)
				}
			}
		}
		out = append(out, r.Replace(stmt))
	}
	if d != DialectMySQL {
		out = append(out, indexSQL...)
	}
	return out
}
