package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gddl "tkexport/internal/ddl"
	"tkexport/internal/storage"
	myddl "tkexport/internal/storage/mysql/ddl"
	"tkexport/internal/tabular"
)

func TestNewRepositoryRejectsBadDSN(t *testing.T) {
	t.Parallel()
	_, _, err := NewRepository(context.Background(), Config{DSN: "no-slash-here"})
	assert.Error(t, err)
}

func TestMapTypeAndQuote(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "DATETIME", myddl.MapType(gddl.KindDateTime))
	assert.Equal(t, "LONGTEXT", myddl.MapType(gddl.KindText))
	assert.Equal(t, "`a``b`", myddl.QuoteIdent("a`b"))
}

func TestReplaceTableUsesBackticks(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	b := storage.SQLBackend{DB: db, Dialect: Dialect}
	buf, _ := tabular.NewBuffer([]string{"payitemid"}, [][]any{{int64(100)}})

	mock.ExpectBegin()
	mock.ExpectExec("DROP TABLE IF EXISTS `tblPayItem`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE `tblPayItem` (\n  `payitemid` BIGINT\n)").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectPrepare("INSERT INTO `tblPayItem` (`payitemid`) VALUES (?)")
	mock.ExpectExec("INSERT INTO `tblPayItem` (`payitemid`) VALUES (?)").WithArgs(int64(100)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := b.ReplaceTable(context.Background(), "tblPayItem", buf)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
