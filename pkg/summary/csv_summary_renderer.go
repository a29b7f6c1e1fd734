package summary

import (
	"bytes"
	"encoding/csv"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type CsvSummaryRendererImpl struct {
}

func NewCsvSummaryRenderer() *CsvSummaryRendererImpl {
	return &CsvSummaryRendererImpl{}
}

func (t *CsvSummaryRendererImpl) RenderSummary(summary MonthSummary) (string, error) {
	data := make([][]string, 0, len(summary.Categories)+2)
	data = append(data, []string{"category", "spent", "received", "count"})
	for _, total := range summary.Categories {
		data = append(data, []string{
			total.Category,
			total.Spent.String(),
			total.Received.String(),
			strconv.Itoa(total.Count),
		})
	}
	data = append(data, []string{
		"TOTAL",
		summary.TotalSpent.String(),
		summary.TotalReceived.String(),
		strconv.Itoa(summary.Count),
	})

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return b.String(), nil
}
