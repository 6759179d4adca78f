package models

// APIProblem represents an RFC 7807 Problem Details response.
type APIProblem struct {
	Type     string `json:"type" example:"https://fleetmap.dev/problems/not-found"`
	Title    string `json:"title" example:"Not Found"`
	Status   int    `json:"status" example:"404"`
	Detail   string `json:"detail,omitempty" example:"dashboard not ready"`
	Instance string `json:"instance,omitempty" example:"/api/v1/inventory/tenants/acme/dashboard"`
}
