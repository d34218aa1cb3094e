package service

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AvivElectis/electisSpace-sub007/internal/domain"
)

// ArticleFixedHeader 固定列；之后的列是租户 format 的自定义字段（列名即字段键）
var ArticleFixedHeader = []string{
	"Article ID",
	"Article Name",
	"NFC URL",
}

// ArticleTemplateHeader 导入模板表头（固定列 + 默认 format 的数据字段）
var ArticleTemplateHeader = []string{
	"Article ID",
	"Article Name",
	"NFC URL",
	"SPACE_TYPE",
	"CAPACITY",
	"OCCUPANT",
	"STATUS",
}

// GenerateArticleImportTemplate 生成导入模板 Excel 文件（只有表头）
func GenerateArticleImportTemplate() ([]byte, error) {
	return generateArticleExcel(ArticleTemplateHeader, nil)
}

// GenerateArticleExport 生成商品导出 Excel 文件
// 数据列取全部商品 data 键的并集（按字母序），商品缺某字段时留空
func GenerateArticleExport(articles []domain.Article) ([]byte, error) {
	dataKeySet := map[string]bool{}
	for _, a := range articles {
		for k := range a.Data {
			dataKeySet[k] = true
		}
	}
	dataKeys := make([]string, 0, len(dataKeySet))
	for k := range dataKeySet {
		dataKeys = append(dataKeys, k)
	}
	sort.Strings(dataKeys)

	headers := append(append([]string{}, ArticleFixedHeader...), dataKeys...)

	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		row := []string{a.ArticleID, a.ArticleName, a.NFCURL}
		for _, k := range dataKeys {
			row = append(row, a.Data[k])
		}
		rows = append(rows, row)
	}

	return generateArticleExcel(headers, rows)
}

// generateArticleExcel 生成商品 Excel 文件的通用函数
func generateArticleExcel(headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Articles"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// 写入表头
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	// 列宽：固定列宽一点，数据列统一
	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		width := 18.0
		if i < len(ArticleFixedHeader) {
			width = 24.0
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	// 写入数据
	for rowIdx, row := range rows {
		for colIdx, value := range row {
			if value == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write excel: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close excel: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseArticleImport 解析导入的 Excel
// 第一行为表头；固定列按名匹配，其余列按列名进 data 自定义字段。
// Article ID 为空的行跳过（不算错误，模板里常留空行）
func ParseArticleImport(fileBytes []byte) ([]domain.Article, error) {
	f, err := excelize.OpenReader(bytes.NewReader(fileBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to parse excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("excel file has no sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	headerMap := make(map[int]string, len(rows[0]))
	for i, h := range rows[0] {
		headerMap[i] = strings.TrimSpace(h)
	}

	articles := make([]domain.Article, 0, len(rows)-1)
	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		article := domain.Article{Data: map[string]string{}}
		for colIdx, value := range row {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			switch headerMap[colIdx] {
			case "Article ID":
				article.ArticleID = value
			case "Article Name":
				article.ArticleName = value
			case "NFC URL":
				article.NFCURL = value
			case "":
				// 无表头的列忽略
			default:
				article.Data[headerMap[colIdx]] = value
			}
		}
		if article.ArticleID == "" {
			continue
		}
		if len(article.Data) == 0 {
			article.Data = nil
		}
		articles = append(articles, article)
	}
	return articles, nil
}
