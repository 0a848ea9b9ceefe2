package services

import (
	"context"
	"fmt"
	"github.com/maxaizer/seek-applier/internal/entities"
	"github.com/pkg/errors"
	"regexp"
	"strings"
)

type aiClient interface {
	GenerateResponse(ctx context.Context, request string) (string, error)
}

// AIService drafts the application texts. Content quality is up to the model; the service only
// enforces the shape of the output.
type AIService struct {
	aiClient      aiClient
	applicantName string
}

func NewAIService(aiClient aiClient, applicantName string) *AIService {
	return &AIService{aiClient: aiClient, applicantName: applicantName}
}

// DraftCoverLetter writes a letter for the job and runs it through a second review pass.
func (a *AIService) DraftCoverLetter(ctx context.Context, job entities.Job, resume string, australianEnglish bool) (string, error) {

	draft, err := a.aiClient.GenerateResponse(ctx, coverLetterRequest(job, resume, australianEnglish))
	if err != nil {
		return "", errors.Wrap(err, "error drafting cover letter")
	}

	reviewed, err := a.aiClient.GenerateResponse(ctx, reviewRequest(cleanGenerated(draft), resume, job.Description()))
	if err != nil {
		return "", errors.Wrap(err, "error reviewing cover letter")
	}

	letter := cleanGenerated(reviewed)
	if letter == "" {
		return "", errors.New("generated cover letter is empty")
	}
	return letter, nil
}

// DraftEmailBody writes a short note to a recruiter, signed with the applicant's name.
func (a *AIService) DraftEmailBody(ctx context.Context) (string, error) {

	response, err := a.aiClient.GenerateResponse(ctx, emailRequest(a.applicantName))
	if err != nil {
		return "", errors.Wrap(err, "error drafting email body")
	}

	body := cleanGenerated(response)
	if body == "" {
		return "", errors.New("generated email body is empty")
	}

	if a.applicantName != "" && !strings.HasSuffix(body, a.applicantName) {
		body += "\n\nBest regards\n" + a.applicantName
	}
	return body, nil
}

func coverLetterRequest(job entities.Job, resume string, australianEnglish bool) string {

	var sb strings.Builder
	sb.WriteString("You are an expert career consultant. Write a targeted, professional cover letter " +
		"for the position below using only the facts from the resume.\n\n")
	sb.WriteString("Resume:\n---\n" + resume + "\n---\n\n")
	sb.WriteString("Job description:\n---\n" + job.Description() + "\n---\n\n")
	sb.WriteString(fmt.Sprintf("Company to address: %s\nPosition: %s\n\n", job.CompanyOrDefault(), job.Title))
	sb.WriteString("Rules:\n" +
		"- Never mention a skill, technology or achievement that is not in the resume.\n" +
		"- No more than 400 words, three to five paragraphs.\n" +
		"- No placeholders in square brackets, no date, no addresses or contact details.\n" +
		"- Start directly with the salutation and end directly with the closing, without a name after it.\n")
	if australianEnglish {
		sb.WriteString("- Use Australian English spelling (optimise, customise, utilise).\n")
	}
	sb.WriteString("\nRespond only with the cover letter text.")
	return sb.String()
}

func reviewRequest(letter, resume, description string) string {
	return "You are an editor. Verify the cover letter against the resume and remove any claim the resume " +
		"does not support. Keep it under 500 words, make only minor flow improvements and delete any text " +
		"in square brackets together with the brackets.\n\n" +
		"Cover letter:\n---\n" + letter + "\n---\n\n" +
		"Resume:\n---\n" + resume + "\n---\n\n" +
		"Job description:\n---\n" + description + "\n---\n\n" +
		"Respond only with the final cover letter text."
}

func emailRequest(applicantName string) string {
	return "Write a short, polite cold email to a recruiter. Mention that the resume and cover letter are " +
		"attached. Do not include a subject line or any commentary. Use exactly this format:\n" +
		"Dear Hiring Manager,\n<contents of the email>\nBest regards\n" + applicantName
}

var (
	codeFence   = regexp.MustCompile("(?m)^\\s*```[a-zA-Z]*\\s*$")
	placeholder = regexp.MustCompile(`\[[^\]\n]*\]`)
)

func cleanGenerated(text string) string {
	text = codeFence.ReplaceAllString(text, "")
	text = strings.Trim(strings.TrimSpace(text), "`")
	text = placeholder.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
