package workerapi

import (
	"net/http"

	"github.com/cloudforge/jobbroker/internal/config"
)

// accessInfoResponse publishes enough identity-provider metadata for a
// worker to bootstrap its own OIDC/JWT client (§4.4, §6).
type accessInfoResponse struct {
	PoolID   string `json:"pool_id"`
	ClientID string `json:"client_id"`
	Region   string `json:"region"`
}

// AccessInfo implements GET /access_info.
func AccessInfo(w http.ResponseWriter, r *http.Request) {
	(&BaseHandler{}).respondWithJSON(w, http.StatusOK, accessInfoResponse{
		PoolID:   config.CognitoUserPoolID,
		ClientID: config.CognitoClientID,
		Region:   config.CognitoRegion,
	})
}

// Welcome implements GET /.
func Welcome(w http.ResponseWriter, r *http.Request) {
	(&BaseHandler{}).respondWithJSON(w, http.StatusOK, map[string]string{
		"message": "jobbroker worker api",
	})
}
