/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package identity

// Animals are the head words of generated names.
var Animals = []string{
	"Sư Tử", "Hổ", "Báo", "Rồng", "Đại Bàng",
	"Cáo", "Sói", "Gấu", "Voi", "Ngựa",
	"Phượng Hoàng", "Rùa", "Thỏ", "Hươu", "Cú Mèo",
	"Chim Ưng", "Cá Voi", "Cá Heo", "Bướm", "Ong",
	"Mèo", "Chó", "Khỉ", "Vượn", "Gà Trống",
	"Công", "Thiên Nga", "Én", "Sếu", "Hạc",
}

// AdjectivesPrimary describe a character and end every generated name.
var AdjectivesPrimary = []string{
	"Dũng Mãnh", "Tinh Ranh", "Thông Thái", "Nhanh Nhẹn", "Kiên Cường",
	"Hùng Vĩ", "Oai Phong", "Bền Bỉ", "Lanh Lợi", "Uyên Bác",
	"Hiền Hòa", "Dịu Dàng", "Mạnh Mẽ", "Can Đảm", "Tài Ba",
	"Sáng Tạo", "Linh Hoạt", "Khéo Léo", "Nhiệt Huyết", "Bình Tĩnh",
	"Vui Vẻ", "Năng Động", "Cần Cù", "Chăm Chỉ", "Thân Thiện",
}

// AdjectivesSecondary are colours and looks, used in some names only.
var AdjectivesSecondary = []string{
	"Xanh", "Đỏ", "Vàng", "Tím", "Bạc",
	"Vàng Óng", "Trắng", "Đen", "Hồng", "Cam",
	"Lam", "Lục", "Nhỏ Nhắn", "To Lớn", "Bé Xinh",
	"Huyền Bí", "Lấp Lánh", "Rực Rỡ", "Lung Linh", "Sáng Ngời",
}

// Palette holds the colours of participants.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4",
	"#FFEAA7", "#DDA0DD", "#98D8C8", "#F7DC6F",
	"#BB8FCE", "#85C1E9", "#F8B500", "#00CED1",
}
