package dto

type CreatePatientRequest struct {
	Name      string `json:"name" binding:"required"`
	Age       int    `json:"age" binding:"required,min=1"`
	Diagnosis string `json:"diagnosis"`
	MMSEScore *int   `json:"mmse_score,omitempty" binding:"omitempty,min=0,max=30"`
	Notes     string `json:"notes"`
	PhotoURL  string `json:"photo_url"`
}

type CreateFamilyMemberRequest struct {
	Name         string   `json:"name" binding:"required"`
	Relationship string   `json:"relationship" binding:"required"`
	PhotoURLs    []string `json:"photo_urls"`
	Notes        string   `json:"notes"`
}
