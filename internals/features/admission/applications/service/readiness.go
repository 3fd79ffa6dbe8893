package service

import (
	docmodel "universitypoland_backend/internals/features/admission/documents/model"
)

// RequiredDocumentTypes is the fixed minimum set an application must cover
// before it may be submitted. Verification happens after submission; a
// pending upload counts, a rejected one does not.
var RequiredDocumentTypes = []docmodel.DocumentType{
	docmodel.DocumentTypePassport,
	docmodel.DocumentTypeTranscript,
	docmodel.DocumentTypeDiploma,
}

// MissingDocumentTypes returns the required types for which no non-rejected
// row exists. Multiple rows per type are expected (re-upload after a
// rejection creates a fresh row and leaves the rejected one in place).
func MissingDocumentTypes(docs []docmodel.DocumentModel) []docmodel.DocumentType {
	covered := make(map[docmodel.DocumentType]bool, len(RequiredDocumentTypes))
	for _, d := range docs {
		if d.DocumentDeletedAt != nil {
			continue
		}
		if d.DocumentVerificationStatus == docmodel.DocumentVerificationRejected {
			continue
		}
		covered[d.DocumentType] = true
	}

	var missing []docmodel.DocumentType
	for _, t := range RequiredDocumentTypes {
		if !covered[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// DocumentsReady is the submission readiness gate.
func DocumentsReady(docs []docmodel.DocumentModel) bool {
	return len(MissingDocumentTypes(docs)) == 0
}
