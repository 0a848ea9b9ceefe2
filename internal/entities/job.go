package entities

import "strings"

type Job struct {
	ID                     string `validate:"required"`
	Title                  string
	Company                string
	DescriptionSections    []string
	RequiresExtraQuestions bool
	ContactEmails          []string
	Link                   string
}

func (j Job) Description() string {
	return strings.TrimSpace(strings.Join(j.DescriptionSections, " "))
}

// CompanyOrDefault returns the advertiser name, or a neutral addressee when the listing hides it.
func (j Job) CompanyOrDefault() string {
	if strings.TrimSpace(j.Company) == "" {
		return "Hiring Manager"
	}
	return j.Company
}
