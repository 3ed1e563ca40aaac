package aggregate

import (
	"github.com/signalboard/signalboard/internal/models"
	"gorm.io/gorm"
)

// ComponentGroups returns every group in display order, each carrying its
// components in display order. Empty groups are included with an empty
// component list.
func ComponentGroups(dbc *gorm.DB) ([]GroupDetail, error) {
	var groups []models.ComponentGroup

	if err := dbc.Order("display_order ASC, id ASC").Find(&groups).Error; err != nil {
		return nil, err
	}

	var components []models.Component
	if err := dbc.Order("group_id ASC, display_order ASC, id ASC").Find(&components).Error; err != nil {
		return nil, err
	}

	componentsByGroup := make(map[uint][]ComponentView)
	for _, component := range components {
		componentsByGroup[component.GroupID] = append(componentsByGroup[component.GroupID], ComponentView{
			ID:           component.ID,
			Name:         component.Name,
			Status:       component.Status,
			DisplayOrder: component.DisplayOrder,
			GroupID:      component.GroupID,
		})
	}

	details := make([]GroupDetail, 0, len(groups))
	for _, group := range groups {
		detail := GroupDetail{
			ID:                 group.ID,
			Name:               group.Name,
			DisplayOrder:       group.DisplayOrder,
			CollapsedByDefault: group.CollapsedByDefault,
			Components:         componentsByGroup[group.ID],
		}
		if detail.Components == nil {
			detail.Components = []ComponentView{}
		}
		details = append(details, detail)
	}

	return details, nil
}
