package i18n

// messages 文案表，按语言分组
var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":              "Invalid request",
		"error.unauthorized":             "Unauthorized",
		"error.forbidden":                "Forbidden",
		"error.not_found":                "Resource not found",
		"error.internal":                 "Internal server error",
		"error.rate_limited":             "Too many requests, please try again later",
		"error.rate_limit_unavailable":   "Rate limiter unavailable",
		"error.auth_header_missing":      "Authorization header missing",
		"error.auth_header_invalid":      "Authorization header invalid",
		"error.token_invalid":            "Invalid or expired token",
		"error.jwt_secret_missing":       "JWT secret not configured",
		"error.user_disabled":            "Account disabled",
		"error.login_failed":             "Invalid email or password",
		"error.course_not_found":         "Course not found",
		"error.course_unavailable":       "Course is not available for purchase",
		"error.already_enrolled":         "You are already enrolled in this course",
		"error.order_not_found":          "Order not found",
		"error.order_not_cancellable":    "Order can no longer be cancelled",
		"error.invalid_state":            "Invalid state transition",
		"error.gateway_unsupported":      "Unsupported payment gateway",
		"error.gateway_unavailable":      "Payment gateway temporarily unavailable",
		"error.invalid_signature":        "Signature verification failed",
		"error.amount_mismatch":          "Payment amount mismatch",
		"error.coupon_not_found":         "Coupon not found",
		"error.coupon_inactive":          "Coupon is not active",
		"error.coupon_expired":           "Coupon has expired",
		"error.coupon_not_started":       "Coupon is not yet valid",
		"error.coupon_exhausted":         "Coupon usage limit reached",
		"error.coupon_user_limit":        "You have already used this coupon",
		"error.coupon_min_order":         "Order value too low for this coupon",
		"error.coupon_scope":             "Coupon does not apply to this course",
		"error.refund_not_eligible":      "Order is not eligible for refund",
		"error.refund_window_exceeded":   "Refund request window has passed",
		"error.refund_progress_exceeded": "Course progress exceeds the refund limit",
		"error.refund_already_requested": "A refund request already exists for this order",
		"error.refund_not_found":         "Refund request not found",
		"error.refund_already_processed": "Refund request has already been processed",
		"error.refund_decision_invalid":  "Refund decision must be approve or reject",
		"error.refund_amount_invalid":    "Refund amount is invalid",
		"error.refund_rejected":          "Gateway rejected the refund request",
		"error.coupon_invalid":           "Coupon code is invalid",
		"error.coupon_quote_failed":      "Failed to apply coupon",
		"error.course_not_free":          "Course requires purchase",
		"error.progress_invalid":         "Progress must be between 0 and 100",
		"error.enrollment_not_found":     "Enrollment not found",
		"error.email_taken":              "Email is already registered",
		"error.register_failed":          "Registration failed",
		"error.user_id_invalid":          "Invalid user identity",
		"error.user_id_type_invalid":     "Invalid user identity type",
		"error.admin_id_invalid":         "Invalid admin identity",
		"error.admin_id_type_invalid":    "Invalid admin identity type",
		"error.reconcile_failed":         "Failed to process payment notification",
		"error.order_create_failed":      "Failed to create order",
		"error.order_fetch_failed":       "Failed to load orders",
		"error.course_fetch_failed":      "Failed to load courses",
		"error.user_fetch_failed":        "Failed to load account",
		"error.enrollment_failed":        "Failed to update enrollment",
		"error.enrollment_fetch_failed":  "Failed to load enrollments",
		"error.refund_request_failed":    "Failed to submit refund request",
		"error.refund_fetch_failed":      "Failed to load refund requests",
		"error.refund_process_failed":    "Failed to process refund request",
		"error.coupon_save_failed":       "Failed to save coupon",
		"error.coupon_fetch_failed":      "Failed to load coupons",
		"error.coupon_code_taken":        "Coupon code already exists",
		"error.course_save_failed":       "Failed to save course",
	},
	LocaleVI: {
		"error.bad_request":              "Yêu cầu không hợp lệ",
		"error.unauthorized":             "Chưa xác thực",
		"error.forbidden":                "Không có quyền truy cập",
		"error.not_found":                "Không tìm thấy tài nguyên",
		"error.internal":                 "Lỗi hệ thống",
		"error.rate_limited":             "Quá nhiều yêu cầu, vui lòng thử lại sau",
		"error.rate_limit_unavailable":   "Bộ giới hạn tốc độ không khả dụng",
		"error.auth_header_missing":      "Thiếu header xác thực",
		"error.auth_header_invalid":      "Header xác thực không hợp lệ",
		"error.token_invalid":            "Token không hợp lệ hoặc đã hết hạn",
		"error.jwt_secret_missing":       "Chưa cấu hình khóa JWT",
		"error.user_disabled":            "Tài khoản đã bị khóa",
		"error.login_failed":             "Email hoặc mật khẩu không đúng",
		"error.course_not_found":         "Không tìm thấy khóa học",
		"error.course_unavailable":       "Khóa học hiện không mở bán",
		"error.already_enrolled":         "Bạn đã ghi danh khóa học này",
		"error.order_not_found":          "Không tìm thấy đơn hàng",
		"error.order_not_cancellable":    "Đơn hàng không thể hủy được nữa",
		"error.invalid_state":            "Chuyển trạng thái không hợp lệ",
		"error.gateway_unsupported":      "Cổng thanh toán không được hỗ trợ",
		"error.gateway_unavailable":      "Cổng thanh toán tạm thời không khả dụng",
		"error.invalid_signature":        "Xác minh chữ ký thất bại",
		"error.amount_mismatch":          "Số tiền thanh toán không khớp",
		"error.coupon_not_found":         "Không tìm thấy mã giảm giá",
		"error.coupon_inactive":          "Mã giảm giá không còn hiệu lực",
		"error.coupon_expired":           "Mã giảm giá đã hết hạn",
		"error.coupon_not_started":       "Mã giảm giá chưa có hiệu lực",
		"error.coupon_exhausted":         "Mã giảm giá đã hết lượt sử dụng",
		"error.coupon_user_limit":        "Bạn đã sử dụng mã giảm giá này",
		"error.coupon_min_order":         "Giá trị đơn hàng chưa đạt mức tối thiểu",
		"error.coupon_scope":             "Mã giảm giá không áp dụng cho khóa học này",
		"error.refund_not_eligible":      "Đơn hàng không đủ điều kiện hoàn tiền",
		"error.refund_window_exceeded":   "Đã quá thời hạn yêu cầu hoàn tiền",
		"error.refund_progress_exceeded": "Tiến độ học vượt quá giới hạn hoàn tiền",
		"error.refund_already_requested": "Đơn hàng đã có yêu cầu hoàn tiền",
		"error.refund_not_found":         "Không tìm thấy yêu cầu hoàn tiền",
		"error.refund_already_processed": "Yêu cầu hoàn tiền đã được xử lý",
		"error.refund_decision_invalid":  "Quyết định hoàn tiền phải là approve hoặc reject",
		"error.refund_amount_invalid":    "Số tiền hoàn không hợp lệ",
		"error.refund_rejected":          "Cổng thanh toán từ chối yêu cầu hoàn tiền",
		"error.coupon_invalid":           "Mã giảm giá không hợp lệ",
		"error.coupon_quote_failed":      "Áp dụng mã giảm giá thất bại",
		"error.course_not_free":          "Khóa học này cần mua mới học được",
		"error.progress_invalid":         "Tiến độ học phải trong khoảng 0 đến 100",
		"error.enrollment_not_found":     "Không tìm thấy ghi danh",
		"error.email_taken":              "Email đã được đăng ký",
		"error.register_failed":          "Đăng ký thất bại",
		"error.user_id_invalid":          "Danh tính người dùng không hợp lệ",
		"error.user_id_type_invalid":     "Kiểu danh tính người dùng không hợp lệ",
		"error.admin_id_invalid":         "Danh tính quản trị viên không hợp lệ",
		"error.admin_id_type_invalid":    "Kiểu danh tính quản trị viên không hợp lệ",
		"error.reconcile_failed":         "Xử lý thông báo thanh toán thất bại",
		"error.order_create_failed":      "Tạo đơn hàng thất bại",
		"error.order_fetch_failed":       "Tải danh sách đơn hàng thất bại",
		"error.course_fetch_failed":      "Tải danh sách khóa học thất bại",
		"error.user_fetch_failed":        "Tải thông tin tài khoản thất bại",
		"error.enrollment_failed":        "Cập nhật ghi danh thất bại",
		"error.enrollment_fetch_failed":  "Tải danh sách ghi danh thất bại",
		"error.refund_request_failed":    "Gửi yêu cầu hoàn tiền thất bại",
		"error.refund_fetch_failed":      "Tải danh sách yêu cầu hoàn tiền thất bại",
		"error.refund_process_failed":    "Xử lý yêu cầu hoàn tiền thất bại",
		"error.coupon_save_failed":       "Lưu mã giảm giá thất bại",
		"error.coupon_fetch_failed":      "Tải danh sách mã giảm giá thất bại",
		"error.coupon_code_taken":        "Mã giảm giá đã tồn tại",
		"error.course_save_failed":       "Lưu khóa học thất bại",
	},
}
