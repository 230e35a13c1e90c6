package observability

const (
	MUsecaseRequests     MetricKey = "usecase_requests_total"
	MUsecaseDuration     MetricKey = "usecase_duration_seconds"
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"
	MDispenseFailures    MetricKey = "dispense_failures_total"
	MStockCompensations  MetricKey = "stock_compensations_total"
	MStockLevelWarnings  MetricKey = "stock_level_warnings_total"
	MSalesRecorded       MetricKey = "sales_recorded_total"
)
