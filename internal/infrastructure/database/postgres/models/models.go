package models

// All lists the models migrated by the migrate command.
func All() []any {
	return []any{
		&CompanyModel{},
		&LicenseModel{},
		&LicenseTransactionModel{},
		&UserModel{},
		&ContainerTypeModel{},
		&ProfileModel{},
		&SensorModel{},
		&TrashbinModel{},
		&OnboardingRequestModel{},
		&RecordModel{},
		&RawMessageModel{},
		&JobModel{},
		&BatchModel{},
		&RouteModel{},
		&RoutePointModel{},
		&AssignmentModel{},
		&PushTokenModel{},
		&NotificationModel{},
	}
}
