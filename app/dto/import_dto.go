package dto

// ImportExcelResponse summarizes a spreadsheet import
type ImportExcelResponse struct {
	Message          string `json:"message" example:"Imported 120 parts and 5 formulas from file"`
	PartsImported    int    `json:"parts_imported" example:"120"`
	FormulasImported int    `json:"formulas_imported" example:"5"`
}
