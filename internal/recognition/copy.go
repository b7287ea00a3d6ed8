package recognition

import "github.com/your-org/memora/internal/models"

// ResultCopy is the user-facing title/message/remedy for one failure
// kind. Selection is a static lookup; the session never retries on its
// own.
type ResultCopy struct {
	Title      string
	Message    string
	Suggestion string
}

var failureCopy = map[models.ErrorKind]ResultCopy{
	models.ErrNoFace: {
		Title:      "No Face Detected",
		Message:    "We couldn't find a face in the photo.",
		Suggestion: "Make sure the face is clearly visible and centered.",
	},
	models.ErrLowQualityFace: {
		Title:      "Photo Too Blurry",
		Message:    "The photo quality is too low to recognize anyone.",
		Suggestion: "Try again with better lighting, or move closer.",
	},
	models.ErrNoFamilyData: {
		Title:      "No Family Members Yet",
		Message:    "There are no family members set up for this patient.",
		Suggestion: "Ask your caregiver to add family members with photos.",
	},
	models.ErrProcessingError: {
		Title:      "Something Went Wrong",
		Message:    "We couldn't process the family photos.",
		Suggestion: "Please try again in a moment.",
	},
	models.ErrUnknownPerson: {
		Title:      "Person Not Recognized",
		Message:    "This face doesn't match any family member.",
		Suggestion: "Try moving closer to better light.",
	},
	models.ErrDetectionError: {
		Title:      "Recognition Failed",
		Message:    "Face detection failed.",
		Suggestion: "Please try again.",
	},
}

// CopyFor returns the display copy for a failure kind. Unknown kinds
// fall back to the detection_error entry. A suggestion supplied by the
// recognition function wins over the static one.
func CopyFor(result *models.RecognitionResult) ResultCopy {
	c, ok := failureCopy[result.ErrorKind]
	if !ok {
		c = failureCopy[models.ErrDetectionError]
	}
	if result.Suggestion != "" {
		c.Suggestion = result.Suggestion
	}
	return c
}
