package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/dialog"
)

const minPriceMessage = "Minimum price is $10 for this job."

// handleValidatePostJob runs after every slot-filling turn of the post-job
// dialogue. It normalizes what the NLU collected: free text accumulates into
// the description, the classifier fills a missing category, the zip code is
// geocoded (a bad zip is cleared so the dialogue re-asks), and the price
// floor is enforced.
func (e *Engine) handleValidatePostJob(ctx context.Context, turn *dialog.Turn) (*dialog.Result, error) {
	params := dialog.DecodePostJobParams(turn.Parameters)
	writes := map[string]interface{}{}

	if text := strings.TrimSpace(turn.Text); text != "" {
		if accumulated := dialog.AppendText(params.Description, text); accumulated != params.Description {
			params.Description = accumulated
			writes["job_description"] = accumulated
		}
	}

	if params.Category == "" && params.Description != "" {
		result := e.fillCategory(ctx, params.Description, writes)
		if result != nil {
			return result.WithParameters(writes), nil
		}
	}

	// The zip is re-checked on every turn it is present: the user can change
	// it after a location was already derived, and the held location must
	// follow the zip rather than go stale.
	if params.ZipCode != "" {
		place, err := e.deps.Geocoder.LookupZip(ctx, params.ZipCode)
		if err != nil {
			return nil, fmt.Errorf("geocode zip %s: %w", params.ZipCode, err)
		}
		if place == nil {
			// Unknown zip: clear both slots so the dialogue asks again
			// instead of carrying a location we cannot place.
			writes["zip_code"] = nil
			writes["location_data"] = nil
		} else {
			writes["location_data"] = place.City + ", " + place.State
		}
	}

	if params.Amount != nil && params.Amount.Amount.LessThan(e.cfg.MinPrice) {
		writes["amount"] = nil
		return dialog.TextResult(minPriceMessage).WithParameters(writes), nil
	}

	return (&dialog.Result{}).WithParameters(writes), nil
}

// handleValidateFindJob validates the find-job dialogue's slots: only the zip
// needs checking, the category is taken as given.
func (e *Engine) handleValidateFindJob(ctx context.Context, turn *dialog.Turn) (*dialog.Result, error) {
	params := dialog.DecodeFindJobParams(turn.Parameters)
	writes := map[string]interface{}{}

	if params.ZipCode != "" {
		place, err := e.deps.Geocoder.LookupZip(ctx, params.ZipCode)
		if err != nil {
			return nil, fmt.Errorf("geocode zip %s: %w", params.ZipCode, err)
		}
		if place == nil {
			writes["zip_code"] = nil
			writes["location_data"] = nil
		} else {
			writes["location_data"] = place.City + ", " + place.State
		}
	}

	return (&dialog.Result{}).WithParameters(writes), nil
}

// fillCategory asks the classifier for the job's category. One suggestion
// fills the slot silently; two plausible ones become a disambiguation prompt;
// none leaves the slot empty so the dialogue re-asks. A nil return means the
// slot was handled without needing to say anything.
func (e *Engine) fillCategory(ctx context.Context, description string, writes map[string]interface{}) *dialog.Result {
	suggestions, err := e.deps.Classifier.Predict(ctx, description)
	if err != nil {
		e.log.Warn("category classification unavailable",
			"error", err.Error(),
		)
		return nil
	}

	switch len(suggestions) {
	case 0:
		return nil
	case 1:
		writes["job_category"] = suggestions[0].Category
		return nil
	default:
		// Confident leader: take it without asking.
		if suggestions[0].Confidence >= 2*suggestions[1].Confidence {
			writes["job_category"] = suggestions[0].Category
			return nil
		}
		return &dialog.Result{Messages: []dialog.ResponseMessage{
			dialog.ChipsMessage(
				"Which of these best describes your job?",
				dialog.Chip{Text: suggestions[0].Category},
				dialog.Chip{Text: suggestions[1].Category},
			),
		}}
	}
}
