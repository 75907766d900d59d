package api

import (
	"encoding/base64" // Image payloads travel base64-encoded
	"net/http"        // HTTP status codes
	"strconv"         // Confidence formatting
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/classify"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin" // Gin web framework
)

// ClassifyRequest submits one image for analysis.
type ClassifyRequest struct {
	Image        string `json:"image"`         // Base64-encoded image bytes
	AnalysisType string `json:"analysis_type"` // complete/species/lifecycle/disease/defect
}

// ClassifyHandler runs the configured classifier and records the result
// in the classifications table.
func ClassifyHandler(tab *tabular.Store, classifier classify.Classifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req ClassifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		analysis := classify.Analysis(req.AnalysisType)
		if analysis == "" {
			analysis = classify.AnalysisComplete
		}
		image, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image encoding"})
			return
		}
		outcome, err := classifier.Predict(image, analysis)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Classification failed"})
			return
		}

		rec := tabular.Record{
			"timestamp":     time.Now().Format(tabular.TimeLayout),
			"analysis_type": string(analysis),
			"user":          username,
		}
		if p := outcome.Species; p != nil {
			rec["predicted_species"] = p.Class
			rec["species_confidence"] = formatConfidence(p.Confidence)
		}
		if p := outcome.Lifecycle; p != nil {
			rec["predicted_stage"] = p.Class
			rec["stage_confidence"] = formatConfidence(p.Confidence)
		}
		if p := outcome.Disease; p != nil {
			rec["predicted_disease"] = p.Class
			rec["disease_confidence"] = formatConfidence(p.Confidence)
		}
		if p := outcome.Defect; p != nil {
			rec["predicted_defect"] = p.Class
			rec["defect_confidence"] = formatConfidence(p.Confidence)
		}
		if err := tab.Append(tabular.TableAIClassifications, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save analysis results"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": outcome})
	}
}

// RecentClassificationsHandler lists the latest recorded analyses.
func RecentClassificationsHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := tab.Load(tabular.TableAIClassifications)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load classifications"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"classifications": tabular.Tail(recs, 10), "total": len(recs)})
	}
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
