package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

func TestGenerateArticleImportTemplate(t *testing.T) {
	data, err := GenerateArticleImportTemplate()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Articles")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ArticleTemplateHeader, rows[0])
}

func TestGenerateArticleExportColumns(t *testing.T) {
	data, err := GenerateArticleExport([]domain.Article{
		{ArticleID: "A-1", ArticleName: "One", Data: map[string]string{"STATUS": "FREE"}},
		{ArticleID: "A-2", ArticleName: "Two", NFCURL: "https://x.test/a2", Data: map[string]string{"CAPACITY": "4"}},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Articles")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// 数据列是全部 data 键的并集，按字母序
	assert.Equal(t, []string{"Article ID", "Article Name", "NFC URL", "CAPACITY", "STATUS"}, rows[0])
	assert.Equal(t, "A-1", rows[1][0])
	assert.Equal(t, "FREE", rows[1][4])
	assert.Equal(t, "https://x.test/a2", rows[2][2])
	assert.Equal(t, "4", rows[2][3])
}

func TestParseArticleImportSkipsRowsWithoutID(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"Article ID", "Article Name", "OCCUPANT"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"D-1", "Desk 1", "Dana"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]string{"", "No ID", "skip me"}))
	require.NoError(t, f.SetSheetRow(sheet, "A4", &[]string{"D-2", "Desk 2"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	articles, err := ParseArticleImport(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "D-1", articles[0].ArticleID)
	assert.Equal(t, "Dana", articles[0].Data["OCCUPANT"])
	assert.Equal(t, "D-2", articles[1].ArticleID)
	assert.Nil(t, articles[1].Data)
}

func TestParseArticleImportRejectsGarbage(t *testing.T) {
	_, err := ParseArticleImport([]byte("not an xlsx file"))
	assert.Error(t, err)
}
