package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/stitchfocus/garment_backend/config"
	"bitbucket.org/stitchfocus/garment_backend/utils"
)

type SampleStatus string

const (
	SampleStatusRequested SampleStatus = "Requested"
	SampleStatusSampling  SampleStatus = "Sampling"
	SampleStatusSubmitted SampleStatus = "Submitted"
	SampleStatusApproved  SampleStatus = "Approved"
	SampleStatusRejected  SampleStatus = "Rejected"
)

func (s SampleStatus) IsValid() bool {
	switch s {
	case SampleStatusRequested, SampleStatusSampling, SampleStatusSubmitted,
		SampleStatusApproved, SampleStatusRejected:
		return true
	}
	return false
}

// DevelopmentRequest is a sample request sheet (SRS): one round of sample
// development for a style. Costing sheet revisions hang off it.
type DevelopmentRequest struct {
	ID             int          `gorm:"primary_key" json:"id"`
	SrsNo          string       `gorm:"size:100;not null" json:"srs_no" binding:"required"`
	CustomerId     int          `gorm:"index;not null" json:"customer_id" binding:"required"`
	StyleId        int          `gorm:"index;not null" json:"style_id" binding:"required"`
	SampleStatus   SampleStatus `gorm:"type:enum('Requested','Sampling','Submitted','Approved','Rejected');default:'Requested'" json:"sample_status"`
	RequestedDate  *time.Time   `gorm:"default:null" json:"requested_date"`
	SampleDeadline *time.Time   `gorm:"default:null" json:"sample_deadline"`
	SubmittedDate  *time.Time   `gorm:"default:null" json:"submitted_date"`
	Remark         string       `gorm:"type:text;default:null" json:"remark"`
	CreatedAt      time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDevelopmentRequest struct {
	SrsNo          string     `json:"srs_no" binding:"required"`
	CustomerId     int        `json:"customer_id" binding:"required"`
	StyleId        int        `json:"style_id" binding:"required"`
	RequestedDate  *time.Time `json:"requested_date"`
	SampleDeadline *time.Time `json:"sample_deadline"`
	Remark         string     `json:"remark"`
}

func (input *NewDevelopmentRequest) validate(ctx context.Context, id int) error {
	if err := utils.ValidateUnique[DevelopmentRequest](ctx, "srs_no", input.SrsNo, id); err != nil {
		return errors.New("srs no already exists")
	}
	if err := utils.ValidateResourceId[Customer](ctx, input.CustomerId); err != nil {
		return errors.New("customer not found")
	}
	style, err := utils.FetchModel[Style](ctx, input.StyleId)
	if err != nil {
		return errors.New("style not found")
	}
	if style.CustomerId != input.CustomerId {
		return errors.New("style belongs to another customer")
	}
	return nil
}

func CreateDevelopmentRequest(ctx context.Context, input *NewDevelopmentRequest) (*DevelopmentRequest, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	request := DevelopmentRequest{
		SrsNo:          input.SrsNo,
		CustomerId:     input.CustomerId,
		StyleId:        input.StyleId,
		SampleStatus:   SampleStatusRequested,
		RequestedDate:  input.RequestedDate,
		SampleDeadline: input.SampleDeadline,
		Remark:         input.Remark,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func UpdateDevelopmentRequest(ctx context.Context, id int, input *NewDevelopmentRequest) (*DevelopmentRequest, error) {
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	request, err := utils.FetchModel[DevelopmentRequest](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(request).Updates(map[string]interface{}{
		"SrsNo":          input.SrsNo,
		"CustomerId":     input.CustomerId,
		"StyleId":        input.StyleId,
		"RequestedDate":  input.RequestedDate,
		"SampleDeadline": input.SampleDeadline,
		"Remark":         input.Remark,
	}).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func UpdateSampleStatus(ctx context.Context, id int, status SampleStatus) (*DevelopmentRequest, error) {
	if !status.IsValid() {
		return nil, errors.New("invalid sample status")
	}

	request, err := utils.FetchModel[DevelopmentRequest](ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"SampleStatus": status}
	if status == SampleStatusSubmitted && request.SubmittedDate == nil {
		now := time.Now()
		updates["SubmittedDate"] = &now
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(request).Updates(updates).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func DeleteDevelopmentRequest(ctx context.Context, id int) (*DevelopmentRequest, error) {
	request, err := utils.FetchModel[DevelopmentRequest](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&CostingSheet{}).Where("development_request_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("used by costing sheet")
	}

	if err := db.WithContext(ctx).Delete(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func GetDevelopmentRequest(ctx context.Context, id int) (*DevelopmentRequest, error) {
	return utils.FetchModel[DevelopmentRequest](ctx, id)
}

func GetDevelopmentRequests(ctx context.Context, customerId *int, status *SampleStatus) ([]*DevelopmentRequest, error) {
	db := config.GetDB()
	var results []*DevelopmentRequest

	dbCtx := db.WithContext(ctx)
	if customerId != nil && *customerId > 0 {
		dbCtx = dbCtx.Where("customer_id = ?", *customerId)
	}
	if status != nil {
		dbCtx = dbCtx.Where("sample_status = ?", *status)
	}
	if err := dbCtx.Order("id desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
