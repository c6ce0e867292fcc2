package api

type FreeDatesResponse struct {
	FreeDates map[string][]string `json:"free_dates"`
}

type ActiveAppointmentResponse struct {
	ServicesTitles []string `json:"services_titles"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
}

type ActiveAppointmentsResponse struct {
	ActiveAppointments []ActiveAppointmentResponse `json:"active_appointments"`
}

type ServicesResponse struct {
	Services any `json:"services"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
