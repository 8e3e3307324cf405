package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type PlanningFinishedMailData struct {
	FullName    string  `json:"fullName"`
	JobID       int64   `json:"jobID"`
	DatasetName string  `json:"datasetName"`
	Status      string  `json:"status"`
	BestFitness float64 `json:"bestFitness"`
	TowerCount  int     `json:"towerCount"`
	Message     string  `json:"message"`
}

const (
	MailTypeCreateUser       = "create_user"
	MailTypePlanningFinished = "planning_finished"
)
