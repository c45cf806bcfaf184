package services

import "errors"

var (
	ErrAlreadyOwned         = errors.New("you already have access to this item")
	ErrInvalidReferral      = errors.New("referral code is invalid or expired")
	ErrPayoutBelowMinimum   = errors.New("payout amount is below the minimum")
	ErrInvalidPayoutAmount  = errors.New("payout amount must be positive with at most two decimal places")
	ErrPayoutExceedsBalance = errors.New("payout amount exceeds your affiliate balance")
	ErrPayoutMethodMissing  = errors.New("set a payout method before requesting a payout")
	ErrPayoutAlreadyPending = errors.New("you already have a pending payout request")
	ErrPayoutNotPending     = errors.New("payout request has already been processed")
	ErrPayoutNotFound       = errors.New("payout request not found")
	ErrInvalidPayoutDetails = errors.New("payout details do not match the payout method")
	ErrProviderUnavailable  = errors.New("payment provider is temporarily unavailable")
	ErrSessionExpired       = errors.New("checkout session has expired, please start again")
	ErrSessionNotFound      = errors.New("checkout session not found")
	ErrCourseNotFound       = errors.New("course not found")
	ErrCourseIsFree         = errors.New("course is free and cannot be purchased")
	ErrInvalidBundle        = errors.New("bundle may only include existing single courses")
	ErrProductNotFound      = errors.New("product not found")
	ErrOutOfStock           = errors.New("product is out of stock")
	ErrInvalidPlan          = errors.New("invalid plan")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrCaptchaFailed        = errors.New("bot verification failed")
	ErrLessonNotFound       = errors.New("lesson not found")
	ErrAccessDenied         = errors.New("you do not have access to this course")
	ErrPurchaseNotFound     = errors.New("user does not own this course")
	ErrInvalidCourse        = errors.New("invalid course data")
)
