package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Price calculations partitioned by pricing mode
	pricingCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricing_calculations_total",
			Help: "Total number of price calculations performed",
		},
		[]string{"mode"},
	)

	// Spreadsheet rows upserted, partitioned by kind (part, formula)
	excelImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "excel_import_rows_total",
			Help: "Total number of spreadsheet rows imported",
		},
		[]string{"kind"},
	)

	deviceReannotateUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "device_reannotate_updates_total",
			Help: "Total number of parts whose device match changed during re-annotation",
		},
	)
)
