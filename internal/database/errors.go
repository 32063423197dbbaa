package database

import (
	"errors"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// MySQL中属于数据本身问题的错误号
var mysqlDataErrors = map[uint16]bool{
	1048: true, // 列不能为空
	1062: true, // 唯一键冲突
	1216: true, // 外键约束
	1217: true,
	1264: true, // 数值越界
	1366: true, // 非法字符串值
	1406: true, // 数据过长
	1451: true,
	1452: true,
}

// IsDataError 判断是否为约束冲突或非法数据，这类错误重试无意义。
// gorm的TranslateError只覆盖了唯一键冲突，这里按各驱动的原生错误补全。
func IsDataError(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint ||
			sqliteErr.Code == sqlite3.ErrMismatch ||
			sqliteErr.Code == sqlite3.ErrTooBig
	}

	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlDataErrors[mysqlErr.Number]
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 22: data exception, 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23")
	}

	return false
}
