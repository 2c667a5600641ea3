package model

// StatusMeta is the presentation metadata of one status value.
type StatusMeta struct {
	Status   string `json:"status"`
	Label    string `json:"label"`
	Color    string `json:"color"`
	Terminal bool   `json:"terminal"`
}

var appointmentMeta = map[AppointmentStatus]StatusMeta{
	AppointmentStatusScheduled:             {Label: "Scheduled", Color: "blue"},
	AppointmentStatusCheckedIn:             {Label: "Checked in", Color: "cyan"},
	AppointmentStatusInConsultation:        {Label: "In consultation", Color: "orange"},
	AppointmentStatusWaitingResults:        {Label: "Waiting for results", Color: "purple"},
	AppointmentStatusConsultationCompleted: {Label: "Consultation completed", Color: "teal"},
	AppointmentStatusCompleted:             {Label: "Completed", Color: "green", Terminal: true},
	AppointmentStatusCancelled:             {Label: "Cancelled", Color: "red", Terminal: true},
}

var prescriptionMeta = map[PrescriptionStatus]StatusMeta{
	PrescriptionStatusCreated:          {Label: "Created", Color: "gray"},
	PrescriptionStatusSentToLab:        {Label: "Sent to lab", Color: "blue"},
	PrescriptionStatusSampleCollected:  {Label: "Sample collected", Color: "cyan"},
	PrescriptionStatusInProgress:       {Label: "Analysis in progress", Color: "orange"},
	PrescriptionStatusResultsAvailable: {Label: "Results available", Color: "purple"},
	PrescriptionStatusCompleted:        {Label: "Completed", Color: "green", Terminal: true},
}

var billingMeta = map[BillingStatus]StatusMeta{
	BillingStatusPending: {Label: "Pending", Color: "orange"},
	BillingStatusPaid:    {Label: "Paid", Color: "green", Terminal: true},
	BillingStatusWaived:  {Label: "Waived", Color: "gray", Terminal: true},
}

func (s AppointmentStatus) Meta() StatusMeta {
	m := appointmentMeta[s]
	m.Status = string(s)
	return m
}

func (s PrescriptionStatus) Meta() StatusMeta {
	m := prescriptionMeta[s]
	m.Status = string(s)
	return m
}

func (s BillingStatus) Meta() StatusMeta {
	m := billingMeta[s]
	m.Status = string(s)
	return m
}

// StatusCatalog is the read-only status table served to clients.
type StatusCatalog struct {
	Appointment  []StatusMeta `json:"appointment"`
	Prescription []StatusMeta `json:"prescription"`
	Billing      []StatusMeta `json:"billing"`
}

func Catalog() StatusCatalog {
	var c StatusCatalog
	for _, s := range AppointmentStatuses {
		c.Appointment = append(c.Appointment, s.Meta())
	}
	for _, s := range PrescriptionStatuses {
		c.Prescription = append(c.Prescription, s.Meta())
	}
	for _, s := range []BillingStatus{BillingStatusPending, BillingStatusPaid, BillingStatusWaived} {
		c.Billing = append(c.Billing, s.Meta())
	}
	return c
}
