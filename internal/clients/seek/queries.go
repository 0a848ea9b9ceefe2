package seek

const (
	documentUploadDataQuery = `query GetDocumentUploadData($id: UUID!) {
  viewer {
    documentUploadFormData(id: $id) {
      link
      key
      formFields {
        key
        value
        __typename
      }
      __typename
    }
    __typename
  }
}`

	processUploadedResumeQuery = `mutation ApplyProcessUploadedResume($input: ProcessUploadedResumeInput!) {
  processUploadedResume(input: $input) {
    resume {
      ...resume
      __typename
    }
    viewer {
      _id
      resumes {
        ...resume
        __typename
      }
      __typename
    }
    __typename
  }
}

fragment resume on Resume {
  id
  createdDateUtc
  isDefault
  fileMetadata {
    name
    size
    virusScanStatus
    sensitiveDataInfo {
      isDetected
      __typename
    }
    uri
    __typename
  }
  origin {
    type
    __typename
  }
  __typename
}`

	processUploadedAttachmentQuery = `mutation ApplyProcessUploadedAttachment($input: ProcessUploadedAttachmentInput!) {
  processUploadedAttachment(input: $input) {
    uri
    __typename
  }
}`

	submitApplicationQuery = `mutation ApplySubmitApplication($input: SubmitApplicationInput!, $locale: Locale) {
  submitApplication(input: $input) {
    ... on SubmitApplicationSuccess {
      applicationId
      __typename
    }
    ... on SubmitApplicationFailure {
      errors {
        message(locale: $locale)
        __typename
      }
      __typename
    }
    __typename
  }
}`

	rolesQuery = `query GetRoles {
  viewer {
    _id
    roles {
      ...role
      __typename
    }
    yearsOfExperience {
      newToWorkforce
      __typename
    }
    __typename
  }
}

fragment role on Role {
  id
  title {
    text
    ontologyId
    __typename
  }
  company {
    text
    ontologyId
    __typename
  }
  seniority {
    text
    ontologyId
    __typename
  }
  from {
    year
    month
    __typename
  }
  to {
    year
    month
    __typename
  }
  achievements
  tracking {
    events {
      key
      value
      __typename
    }
    __typename
  }
  __typename
}`
)
