package handlers

// ErrorResponse is the error body for every failed request.
type ErrorResponse struct {
	Detail string `json:"detail" example:"User not found"`
}

// StatusResponse acknowledges a device request.
type StatusResponse struct {
	Status string `json:"status" example:"received"`
}

// RoastSubmitResponse acknowledges a submitted roast config.
type RoastSubmitResponse struct {
	Success    bool `json:"success"`
	RoastCount int  `json:"roast_count"`
}

// WelcomeResponse greets integrators poking the API root.
type WelcomeResponse struct {
	Message string `json:"message" example:"Welcome to the Roast Bot API"`
}
