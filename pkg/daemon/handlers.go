package daemon

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/api"
	"github.com/kcal-sh/kcal/pkg/config"
	"github.com/kcal-sh/kcal/pkg/events"
	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
	"github.com/kcal-sh/kcal/pkg/version"
)

func getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

func initializeApp(c *gin.Context) {
	var req api.InitializeRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.AppID == "" {
		c.IndentedJSON(http.StatusOK, api.InitializeResponse{
			Initialized: false,
			Reason:      "app id must not be empty",
		})
		return
	}

	if !conf.AcceptClients() {
		logrus.WithField("appId", req.AppID).Info("rejected app: not accepting clients")
		c.IndentedJSON(http.StatusOK, api.InitializeResponse{
			Initialized: false,
			Reason:      "the health service is not accepting new apps right now",
		})
		return
	}

	if err := db.RegisterApp(req.AppID); err != nil {
		logrus.Errorf("registerApp failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.WithField("appId", req.AppID).Info("app initialized")

	c.IndentedJSON(http.StatusOK, api.InitializeResponse{Initialized: true})
}

func requestPermissions(c *gin.Context) {
	var req api.PermissionRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.AppID == "" {
		err := fmt.Errorf("app id must not be empty")
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	for _, p := range req.Permissions {
		if !p.Valid() {
			err := fmt.Errorf("invalid permission %q", p)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}

	known, err := db.AppKnown(req.AppID)
	if err != nil {
		logrus.Errorf("appKnown failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if !known {
		err := fmt.Errorf("app %s has not initialized", req.AppID)
		c.IndentedJSON(http.StatusForbidden, err.Error())
		_ = c.AbortWithError(http.StatusForbidden, err)
		return
	}

	granted, err := db.GrantsFor(req.AppID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	// Requesting an already-granted permission is a no-op; the rest go
	// through the auto-grant policy. There is no interactive consent
	// prompt, the policy is the consent surface.
	var toGrant []permission.Permission
	for _, p := range req.Permissions {
		if permission.Granted(granted, p) {
			continue
		}
		if p.AccessType == permission.AccessRead && conf.AutoGrantReads() {
			toGrant = append(toGrant, p)
		}
		if p.AccessType == permission.AccessWrite && conf.AutoGrantWrites() {
			toGrant = append(toGrant, p)
		}
	}

	if len(toGrant) > 0 {
		if err := db.Grant(req.AppID, toGrant); err != nil {
			logrus.Errorf("grant failed: %v", err)
			c.IndentedJSON(http.StatusInternalServerError, err.Error())
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		hub.Publish(events.PermissionsChanged, events.PermissionsChangedEvent{
			AppID: req.AppID,
			Ts:    time.Now().UnixMilli(),
		})
	}

	granted, err = db.GrantsFor(req.AppID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"appId":     req.AppID,
		"requested": len(req.Permissions),
		"granted":   len(granted),
	}).Info("permissions requested")

	c.IndentedJSON(http.StatusOK, api.PermissionResponse{Granted: granted})
}

func listPermissions(c *gin.Context) {
	appID := c.Query("appId")
	if appID == "" {
		err := fmt.Errorf("appId query parameter must not be empty")
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	granted, err := db.GrantsFor(appID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	c.IndentedJSON(http.StatusOK, api.PermissionResponse{Granted: granted})
}

func grantPermissions(c *gin.Context) {
	applyGrantChange(c, "granted", db.Grant)
}

func revokePermissions(c *gin.Context) {
	applyGrantChange(c, "revoked", db.Revoke)
}

// applyGrantChange is the shared body of the management grant/revoke
// endpoints. These bypass the auto-grant policy on purpose: they are
// how an operator administers grants, not how apps ask for them.
func applyGrantChange(c *gin.Context, verb string, apply func(string, []permission.Permission) error) {
	var req api.PermissionRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.AppID == "" {
		err := fmt.Errorf("app id must not be empty")
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	for _, p := range req.Permissions {
		if !p.Valid() {
			err := fmt.Errorf("invalid permission %q", p)
			c.IndentedJSON(http.StatusBadRequest, err.Error())
			_ = c.AbortWithError(http.StatusBadRequest, err)
			return
		}
	}

	known, err := db.AppKnown(req.AppID)
	if err != nil {
		logrus.Errorf("appKnown failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if !known {
		err := fmt.Errorf("app %s has not initialized", req.AppID)
		c.IndentedJSON(http.StatusNotFound, err.Error())
		_ = c.AbortWithError(http.StatusNotFound, err)
		return
	}

	if err := apply(req.AppID, req.Permissions); err != nil {
		logrus.Errorf("%s failed: %v", verb, err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	hub.Publish(events.PermissionsChanged, events.PermissionsChangedEvent{
		AppID: req.AppID,
		Ts:    time.Now().UnixMilli(),
	})

	granted, err := db.GrantsFor(req.AppID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"appId": req.AppID,
		"count": len(req.Permissions),
	}).Infof("permissions %s", verb)

	c.IndentedJSON(http.StatusCreated, api.PermissionResponse{Granted: granted})
}

func queryRecords(c *gin.Context) {
	var req api.QueryRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.AppID == "" || req.RecordType == "" {
		err := fmt.Errorf("appId and recordType must not be empty")
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	granted, err := db.GrantsFor(req.AppID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if !permission.Granted(granted, permission.Read(req.RecordType)) {
		err := fmt.Errorf("app %s has no read grant on %s", req.AppID, req.RecordType)
		c.IndentedJSON(http.StatusForbidden, err.Error())
		_ = c.AbortWithError(http.StatusForbidden, err)
		return
	}

	from, to, err := parseTimeRange(req.TimeRange)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	rs, err := db.QueryRecords(req.RecordType, from, to)
	if err != nil {
		logrus.Errorf("queryRecords failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	ws := make([]record.WireRecord, 0, len(rs))
	for _, r := range rs {
		ws = append(ws, r.Wire())
	}

	c.IndentedJSON(http.StatusOK, api.RecordsResponse{Records: ws})
}

func importRecords(c *gin.Context) {
	var req api.ImportRequest
	if err := c.BindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	if req.AppID == "" || req.RecordType == "" {
		err := fmt.Errorf("appId and recordType must not be empty")
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	granted, err := db.GrantsFor(req.AppID)
	if err != nil {
		logrus.Errorf("grantsFor failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	if !permission.Granted(granted, permission.Write(req.RecordType)) {
		err := fmt.Errorf("app %s has no write grant on %s", req.AppID, req.RecordType)
		c.IndentedJSON(http.StatusForbidden, err.Error())
		_ = c.AbortWithError(http.StatusForbidden, err)
		return
	}

	rs, err := record.DecodeAll(req.Records)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, err.Error())
		_ = c.AbortWithError(http.StatusBadRequest, err)
		return
	}

	n, err := db.InsertRecords(req.RecordType, req.AppID, rs)
	if err != nil {
		logrus.Errorf("insertRecords failed: %v", err)
		c.IndentedJSON(http.StatusInternalServerError, err.Error())
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}

	hub.Publish(events.RecordsChanged, events.RecordsChangedEvent{
		RecordType: req.RecordType,
		Count:      n,
		Origin:     req.AppID,
		Ts:         time.Now().UnixMilli(),
	})

	logrus.WithFields(logrus.Fields{
		"appId":      req.AppID,
		"recordType": req.RecordType,
		"count":      n,
	}).Info("records imported")

	c.IndentedJSON(http.StatusCreated, api.ImportResponse{Imported: n})
}

func streamEvents(c *gin.Context) {
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// parseTimeRange validates a between filter and returns its bounds.
func parseTimeRange(tr api.TimeRangeFilter) (time.Time, time.Time, error) {
	if tr.Operator != api.OperatorBetween {
		return time.Time{}, time.Time{}, fmt.Errorf("unsupported time range operator %q", tr.Operator)
	}
	from, err := time.Parse(time.RFC3339, tr.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid startTime: %v", err)
	}
	to, err := time.Parse(time.RFC3339, tr.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid endTime: %v", err)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("startTime is after endTime")
	}
	return from, to, nil
}
